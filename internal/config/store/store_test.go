package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, context.Background()
}

func openReadOnlyTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")

	// First open read-write to create schema + seed data.
	rw, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open rw store for setup: %v", err)
	}
	if err := rw.Registry().CreateKey(context.Background(), `SYSTEM\usbc`); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	rw.Close()

	ro, err := Open(Options{DBPath: dbPath, ReadOnly: true})
	if err != nil {
		t.Fatalf("open read-only store: %v", err)
	}
	t.Cleanup(func() { ro.Close() })
	return ro, context.Background()
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "direct NotFoundError",
			err:  NotFoundError{Entity: "test", Key: "k"},
			want: true,
		},
		{
			name: "wrapped NotFoundError",
			err:  fmt.Errorf("outer: %w", NotFoundError{Entity: "test"}),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "other error type",
			err:  errors.New("something"),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	t.Parallel()

	if got := (NotFoundError{Entity: "role switch", Key: "abc"}).Error(); got != "role switch abc not found" {
		t.Errorf("Error() = %q", got)
	}
	if got := (NotFoundError{Entity: "role switch"}).Error(); got != "role switch not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestOpenSeedsDefaultSettings(t *testing.T) {
	t.Parallel()
	store, ctx := openTestStore(t)

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	for key, want := range DefaultSettings() {
		if got := settings[key]; got != want {
			t.Errorf("setting %s = %q, want %q", key, got, want)
		}
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store1, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	reg := store1.Registry()
	if err := reg.CreateKey(ctx, `SYSTEM\usbc`); err != nil {
		t.Fatalf("create key: %v", err)
	}
	if err := reg.WriteInt(ctx, `SYSTEM\usbc`, "VBusEnable", 1); err != nil {
		t.Fatalf("write value: %v", err)
	}
	if err := store1.SaveSettings(ctx, map[string]string{SettingRebootEnabled: "false"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := store1.Close(); err != nil {
		t.Fatalf("close store before reopen: %v", err)
	}

	store2, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { store2.Close() })

	got, err := store2.Registry().ReadInt(ctx, `system\USBC`, "vbusenable")
	if err != nil {
		t.Fatalf("read value after reopen: %v", err)
	}
	if got != 1 {
		t.Fatalf("VBusEnable = %d, want 1", got)
	}

	enabled, err := store2.RebootEnabled(ctx)
	if err != nil {
		t.Fatalf("reboot enabled: %v", err)
	}
	if enabled {
		t.Fatal("expected reboot_enabled=false to persist")
	}
}

func TestReadOnlyStoreRejectsWrites(t *testing.T) {
	t.Parallel()
	store, ctx := openReadOnlyTestStore(t)

	if err := store.SaveSettings(ctx, map[string]string{SettingBackend: BackendNative}); err == nil {
		t.Fatal("expected save settings to fail on read-only store")
	}
	if _, err := store.RecordSwitch(ctx, RoleSwitch{ToRole: "host", Outcome: OutcomeApplied}); err == nil {
		t.Fatal("expected record switch to fail on read-only store")
	}

	exists, err := store.Registry().KeyExists(ctx, `SYSTEM\usbc`)
	if err != nil || !exists {
		t.Fatalf("KeyExists = %v, %v; want true, nil", exists, err)
	}
}
