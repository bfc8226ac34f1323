// Package registry abstracts the hierarchical key/value configuration store
// that the USB role logic reads and writes. On Windows the store is
// HKEY_LOCAL_MACHINE; elsewhere an emulated store stands in for it.
package registry

import (
	"context"
	"strings"
)

// Store is the subset of registry operations the role logic depends on.
// Paths are backslash separated and relative to the hive root. Absent keys
// and values are reported as *NotFoundError, never as zero values.
type Store interface {
	KeyExists(ctx context.Context, path string) (bool, error)
	SubKeys(ctx context.Context, path string) ([]string, error)

	ReadInt(ctx context.Context, path, name string) (int32, error)
	ReadString(ctx context.Context, path, name string) (string, error)
	ReadStrings(ctx context.Context, path, name string) ([]string, error)

	// Writes require the key to exist already.
	WriteInt(ctx context.Context, path, name string, value int32) error
	WriteString(ctx context.Context, path, name, value string) error
	WriteStrings(ctx context.Context, path, name string, value []string) error

	// CreateKey creates path and any missing ancestors. Only the first-run
	// import uses it.
	CreateKey(ctx context.Context, path string) error
}

// Kind identifies the type of a stored value.
type Kind string

const (
	KindDWord    Kind = "REG_DWORD"
	KindString   Kind = "REG_SZ"
	KindMultiSZ  Kind = "REG_MULTI_SZ"
	KindNone     Kind = "REG_NONE"
	KindExpandSZ Kind = "REG_EXPAND_SZ"
)

// Join concatenates path elements with a single backslash.
func Join(elems ...string) string {
	parts := make([]string, 0, len(elems))
	for _, elem := range elems {
		elem = strings.Trim(elem, `\`)
		if elem != "" {
			parts = append(parts, elem)
		}
	}
	return strings.Join(parts, `\`)
}

// Clean trims surrounding separators and collapses repeated backslashes.
func Clean(path string) string {
	return Join(strings.Split(path, `\`)...)
}

// Parent returns the parent of path, or "" for a top-level key.
func Parent(path string) string {
	path = Clean(path)
	if idx := strings.LastIndex(path, `\`); idx >= 0 {
		return path[:idx]
	}
	return ""
}

// Base returns the last element of path.
func Base(path string) string {
	path = Clean(path)
	if idx := strings.LastIndex(path, `\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// TrimHive strips a leading HKEY_LOCAL_MACHINE (or HKLM) element.
func TrimHive(path string) (string, bool) {
	path = Clean(path)
	head, rest, _ := strings.Cut(path, `\`)
	switch strings.ToUpper(head) {
	case "HKEY_LOCAL_MACHINE", "HKLM":
		return rest, true
	}
	return path, false
}

// Value is a typed registry value, used when copying whole key trees.
type Value struct {
	Name    string
	Kind    Kind
	Int     int32
	String  string
	Strings []string
}
