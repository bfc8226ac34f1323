// Package fixture reads and writes YAML snapshots of registry key trees. The
// emulated registry is seeded from these snapshots so that device states can
// be reproduced away from the phone.
package fixture

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/woa-project/usbfnswitch/internal/registry"
)

//go:embed profiles/*.yaml
var profilesFS embed.FS

// Fixture is a snapshot of registry keys and their values.
type Fixture struct {
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Keys        []Key  `yaml:"keys" json:"keys"`
}

// Key is a registry key with its values. Protected keys reject writes once
// applied to a store that supports protection.
type Key struct {
	Path      string  `yaml:"path" json:"path"`
	Protected bool    `yaml:"protected,omitempty" json:"protected,omitempty"`
	Values    []Value `yaml:"values,omitempty" json:"values,omitempty"`
}

// Value holds exactly one of DWord, String or Multi.
type Value struct {
	Name   string    `yaml:"name" json:"name"`
	DWord  *int64    `yaml:"dword,omitempty" json:"dword,omitempty"`
	String *string   `yaml:"string,omitempty" json:"string,omitempty"`
	Multi  *[]string `yaml:"multi,omitempty" json:"multi,omitempty"`
}

// Source enumerates a store's full contents. The emulated registry satisfies it.
type Source interface {
	Keys(ctx context.Context) ([]string, error)
	Values(ctx context.Context, path string) ([]registry.Value, error)
}

// Protector marks keys as write-protected. The emulated registry satisfies it.
type Protector interface {
	Protect(ctx context.Context, path string, protected bool) error
}

// Parse decodes and validates a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads a fixture from disk.
func Load(filename string) (*Fixture, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", filename, err)
	}
	return Parse(data)
}

// Profiles lists the bundled device profiles.
func Profiles() []string {
	entries, err := profilesFS.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Profile returns a bundled device profile by name.
func Profile(name string) (*Fixture, error) {
	data, err := profilesFS.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("fixture: unknown profile %q (available: %s)", name, strings.Join(Profiles(), ", "))
	}
	return Parse(data)
}

// Validate checks that every key has a path and every value exactly one payload.
func (f *Fixture) Validate() error {
	for i, key := range f.Keys {
		if keyPath(key.Path) == "" {
			return fmt.Errorf("fixture: key %d has no path", i)
		}
		for _, value := range key.Values {
			set := 0
			if value.DWord != nil {
				set++
				if *value.DWord < -1<<31 || *value.DWord > 1<<32-1 {
					return fmt.Errorf("fixture: %s\\%s: dword %d out of range", key.Path, value.Name, *value.DWord)
				}
			}
			if value.String != nil {
				set++
			}
			if value.Multi != nil {
				set++
			}
			if set != 1 {
				return fmt.Errorf("fixture: %s\\%s: expected exactly one of dword, string, multi", key.Path, value.Name)
			}
		}
	}
	return nil
}

// Apply creates every key in f and writes its values into store. Keys are
// protected last so that their own values can still be written.
func Apply(ctx context.Context, store registry.Store, f *Fixture) error {
	for _, key := range f.Keys {
		p := keyPath(key.Path)
		if err := store.CreateKey(ctx, p); err != nil {
			return fmt.Errorf("fixture: create %s: %w", p, err)
		}
		for _, value := range key.Values {
			if err := writeValue(ctx, store, p, value); err != nil {
				return fmt.Errorf("fixture: write %s\\%s: %w", p, value.Name, err)
			}
		}
	}

	protector, ok := store.(Protector)
	for _, key := range f.Keys {
		if !key.Protected {
			continue
		}
		if !ok {
			return fmt.Errorf("fixture: store cannot protect %s", key.Path)
		}
		if err := protector.Protect(ctx, keyPath(key.Path), true); err != nil {
			return fmt.Errorf("fixture: protect %s: %w", key.Path, err)
		}
	}
	return nil
}

// keyPath accepts paths with or without a leading HKLM element.
func keyPath(p string) string {
	trimmed, _ := registry.TrimHive(p)
	return trimmed
}

func writeValue(ctx context.Context, store registry.Store, p string, value Value) error {
	switch {
	case value.DWord != nil:
		return store.WriteInt(ctx, p, value.Name, int32(uint32(*value.DWord)))
	case value.String != nil:
		return store.WriteString(ctx, p, value.Name, *value.String)
	case value.Multi != nil:
		return store.WriteStrings(ctx, p, value.Name, *value.Multi)
	}
	return fmt.Errorf("no payload")
}

// Dump snapshots the full contents of src.
func Dump(ctx context.Context, src Source) (*Fixture, error) {
	paths, err := src.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fixture: list keys: %w", err)
	}

	f := &Fixture{Keys: make([]Key, 0, len(paths))}
	for _, p := range paths {
		values, err := src.Values(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("fixture: list values of %s: %w", p, err)
		}
		key := Key{Path: p}
		for _, v := range values {
			key.Values = append(key.Values, fromRegistry(v))
		}
		f.Keys = append(f.Keys, key)
	}
	return f, nil
}

// Marshal encodes f as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("fixture: encode: %w", err)
	}
	return data, nil
}

func fromRegistry(v registry.Value) Value {
	out := Value{Name: v.Name}
	switch v.Kind {
	case registry.KindDWord:
		n := int64(v.Int)
		out.DWord = &n
	case registry.KindMultiSZ:
		strs := append([]string{}, v.Strings...)
		out.Multi = &strs
	default:
		s := v.String
		out.String = &s
	}
	return out
}
