package testutil

import (
	"context"
	"path/filepath"
	"testing"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
	"github.com/woa-project/usbfnswitch/internal/registry/fixture"
)

// OpenStore creates a temporary state store and returns a cleanup function.
func OpenStore(t *testing.T) (*configstore.Store, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := configstore.Open(configstore.Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, func() { store.Close() }
}

// OpenRegistry returns an emulated registry seeded from the YAML document doc.
// The backing store is closed when the test finishes.
func OpenRegistry(t *testing.T, doc string) *configstore.EmulatedRegistry {
	t.Helper()
	store, cleanup := OpenStore(t)
	t.Cleanup(cleanup)

	reg := store.Registry()
	if doc == "" {
		return reg
	}
	f, err := fixture.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if err := fixture.Apply(context.Background(), reg, f); err != nil {
		t.Fatalf("apply fixture: %v", err)
	}
	return reg
}

// OpenProfile returns an emulated registry seeded from a bundled device profile.
func OpenProfile(t *testing.T, name string) *configstore.EmulatedRegistry {
	t.Helper()
	store, cleanup := OpenStore(t)
	t.Cleanup(cleanup)

	f, err := fixture.Profile(name)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	reg := store.Registry()
	if err := fixture.Apply(context.Background(), reg, f); err != nil {
		t.Fatalf("apply profile %s: %v", name, err)
	}
	return reg
}
