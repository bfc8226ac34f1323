// Package regimport performs the first-run initialization that creates the
// USBFN configuration subkeys from a bundled registry export and brands the
// device's USB product string.
package regimport

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/procutil"
	"github.com/woa-project/usbfnswitch/internal/registry"
)

//go:embed seed/USBFN.reg
var seed []byte

// Seed returns the bundled USBFN registry export.
func Seed() []byte {
	return append([]byte(nil), seed...)
}

// NeedsImport reports whether the retail configuration subkey is missing,
// which marks a device that has never been initialized.
func NeedsImport(ctx context.Context, store registry.Store) (bool, error) {
	ok, err := store.KeyExists(ctx, constants.KeyRetailConfiguration)
	if err != nil {
		return false, fmt.Errorf("regimport: probe retail configuration: %w", err)
	}
	return !ok, nil
}

// Apply writes every key and value in f to store. Keys outside
// HKEY_LOCAL_MACHINE are rejected before anything is written.
func Apply(ctx context.Context, store registry.Store, f *File) error {
	paths := make([]string, len(f.Keys))
	for i, key := range f.Keys {
		path, ok := registry.TrimHive(key.Path)
		if !ok || path == "" {
			return fmt.Errorf("regimport: key %s is not under HKEY_LOCAL_MACHINE", key.Path)
		}
		paths[i] = path
	}

	for i, key := range f.Keys {
		path := paths[i]
		if err := store.CreateKey(ctx, path); err != nil {
			return fmt.Errorf("regimport: create %s: %w", path, err)
		}
		for _, v := range key.Values {
			if err := writeValue(ctx, store, path, v); err != nil {
				return fmt.Errorf("regimport: write %s\\%s: %w", path, v.Name, err)
			}
		}
	}
	return nil
}

func writeValue(ctx context.Context, store registry.Store, path string, v registry.Value) error {
	switch v.Kind {
	case registry.KindDWord:
		return store.WriteInt(ctx, path, v.Name, v.Int)
	case registry.KindString:
		return store.WriteString(ctx, path, v.Name, v.String)
	case registry.KindMultiSZ:
		return store.WriteStrings(ctx, path, v.Name, v.Strings)
	}
	return fmt.Errorf("unsupported kind %s", v.Kind)
}

// RunFunc runs an external command to completion.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Importer performs the first-run import.
type Importer struct {
	Store registry.Store

	// UseRegExe imports through reg.exe instead of writing through Store.
	// Only meaningful against the native registry.
	UseRegExe bool
	Run       RunFunc
	TempDir   string

	// ProductFile is the device's product.dat. Empty or missing files
	// produce the generic product string.
	ProductFile string
}

// Import loads the bundled export and sets the product string. It runs
// unconditionally; callers check NeedsImport first.
func (im *Importer) Import(ctx context.Context) error {
	if im.UseRegExe {
		if err := im.importWithRegExe(ctx); err != nil {
			return err
		}
	} else {
		f, err := Parse(seed)
		if err != nil {
			return err
		}
		if err := Apply(ctx, im.Store, f); err != nil {
			return err
		}
		log.Printf("[Import] Applied %d keys from bundled USBFN export", len(f.Keys))
	}

	name := ReadProductName(im.ProductFile)
	if err := im.Store.WriteString(ctx, constants.KeyUSBFN, constants.ValueProductString, name); err != nil {
		return fmt.Errorf("regimport: write product string: %w", err)
	}
	log.Printf("[Import] Product string set to %q", name)
	return nil
}

func (im *Importer) importWithRegExe(ctx context.Context) error {
	tmp, err := os.CreateTemp(im.TempDir, "USBFN-*.reg")
	if err != nil {
		return fmt.Errorf("regimport: create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(seed); err != nil {
		tmp.Close()
		return fmt.Errorf("regimport: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("regimport: close temp file: %w", err)
	}

	run := im.Run
	if run == nil {
		run = procutil.Run
	}
	ctx, cancel := context.WithTimeout(ctx, constants.RegImportTimeout)
	defer cancel()
	if _, err := run(ctx, "reg.exe", "import", filepath.Clean(path)); err != nil {
		return fmt.Errorf("regimport: reg.exe import: %w", err)
	}
	log.Printf("[Import] Imported bundled USBFN export with reg.exe")
	return nil
}
