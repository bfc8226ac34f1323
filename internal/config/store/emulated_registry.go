package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/woa-project/usbfnswitch/internal/registry"
)

var errReadOnly = errors.New("store opened read-only")

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EmulatedRegistry is a registry.Store persisted in the state database. Paths
// compare case-insensitively and subkeys enumerate in case-insensitive name
// order, as on Windows. Protected keys reject writes with AccessDeniedError.
type EmulatedRegistry struct {
	s *Store
}

var _ registry.Store = (*EmulatedRegistry)(nil)

// Registry returns the emulated registry view of the store.
func (s *Store) Registry() *EmulatedRegistry {
	return &EmulatedRegistry{s: s}
}

func keyState(ctx context.Context, q querier, path string) (exists, protected bool, err error) {
	var flag int
	err = q.QueryRowContext(ctx, `SELECT protected FROM registry_keys WHERE path = ?`, path).Scan(&flag)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, false, nil
	case err != nil:
		return false, false, fmt.Errorf("config: lookup registry key %s: %w", path, err)
	}
	return true, flag != 0, nil
}

func (r *EmulatedRegistry) KeyExists(ctx context.Context, path string) (bool, error) {
	exists, _, err := keyState(ctx, r.s.db, registry.Clean(path))
	return exists, err
}

func (r *EmulatedRegistry) SubKeys(ctx context.Context, path string) ([]string, error) {
	path = registry.Clean(path)
	exists, _, err := keyState(ctx, r.s.db, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &registry.NotFoundError{Path: path}
	}

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT name FROM registry_keys
		WHERE parent = ?
		ORDER BY name COLLATE NOCASE
	`, path)
	if err != nil {
		return nil, fmt.Errorf("config: list registry subkeys of %s: %w", path, err)
	}
	names, err := scanList(rows, func(sc rowScanner) (string, error) {
		var name string
		err := sc.Scan(&name)
		return name, err
	}, "config: scan registry subkey", "config: iterate registry subkeys")
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *EmulatedRegistry) readValue(ctx context.Context, path, name string, want registry.Kind) (registry.Value, error) {
	path = registry.Clean(path)
	exists, _, err := keyState(ctx, r.s.db, path)
	if err != nil {
		return registry.Value{}, err
	}
	if !exists {
		return registry.Value{}, &registry.NotFoundError{Path: path}
	}

	row := r.s.db.QueryRowContext(ctx, `
		SELECT name, kind, int_value, str_value
		FROM registry_values
		WHERE key_path = ? AND name = ?
	`, path, name)
	value, err := scanRegistryValue(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return registry.Value{}, &registry.NotFoundError{Path: path, Name: name}
	case err != nil:
		return registry.Value{}, fmt.Errorf("config: read registry value %s\\%s: %w", path, name, err)
	}
	if value.Kind != want {
		return registry.Value{}, &registry.TypeError{Path: path, Name: name, Want: want, Got: value.Kind}
	}
	return value, nil
}

func (r *EmulatedRegistry) ReadInt(ctx context.Context, path, name string) (int32, error) {
	value, err := r.readValue(ctx, path, name, registry.KindDWord)
	return value.Int, err
}

func (r *EmulatedRegistry) ReadString(ctx context.Context, path, name string) (string, error) {
	value, err := r.readValue(ctx, path, name, registry.KindString)
	return value.String, err
}

func (r *EmulatedRegistry) ReadStrings(ctx context.Context, path, name string) ([]string, error) {
	value, err := r.readValue(ctx, path, name, registry.KindMultiSZ)
	return value.Strings, err
}

// Values returns all values stored under path, ordered by name.
func (r *EmulatedRegistry) Values(ctx context.Context, path string) ([]registry.Value, error) {
	path = registry.Clean(path)
	exists, _, err := keyState(ctx, r.s.db, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &registry.NotFoundError{Path: path}
	}

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT name, kind, int_value, str_value
		FROM registry_values
		WHERE key_path = ?
		ORDER BY name COLLATE NOCASE
	`, path)
	if err != nil {
		return nil, fmt.Errorf("config: list registry values of %s: %w", path, err)
	}
	return scanList(rows, scanRegistryValue, "config: scan registry value", "config: iterate registry values")
}

// Keys returns every key path in the emulated registry, parents first.
func (r *EmulatedRegistry) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT path FROM registry_keys ORDER BY path COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("config: list registry keys: %w", err)
	}
	return scanList(rows, func(sc rowScanner) (string, error) {
		var path string
		err := sc.Scan(&path)
		return path, err
	}, "config: scan registry key", "config: iterate registry keys")
}

func (r *EmulatedRegistry) writeValue(ctx context.Context, path, name string, kind registry.Kind, intValue, strValue any) error {
	path = registry.Clean(path)
	if r.s.readOnly {
		return &registry.AccessDeniedError{Path: path, Name: name, Err: errReadOnly}
	}

	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		exists, protected, err := keyState(ctx, tx, path)
		if err != nil {
			return err
		}
		if !exists {
			return &registry.NotFoundError{Path: path}
		}
		if protected {
			return &registry.AccessDeniedError{Path: path, Name: name}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_values (key_path, name, kind, int_value, str_value, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key_path, name) DO UPDATE SET
				kind = excluded.kind,
				int_value = excluded.int_value,
				str_value = excluded.str_value,
				updated_at = CURRENT_TIMESTAMP
		`, path, name, string(kind), intValue, strValue); err != nil {
			return fmt.Errorf("config: write registry value %s\\%s: %w", path, name, err)
		}
		return nil
	})
}

func (r *EmulatedRegistry) WriteInt(ctx context.Context, path, name string, value int32) error {
	return r.writeValue(ctx, path, name, registry.KindDWord, int64(value), nil)
}

func (r *EmulatedRegistry) WriteString(ctx context.Context, path, name, value string) error {
	return r.writeValue(ctx, path, name, registry.KindString, nil, value)
}

func (r *EmulatedRegistry) WriteStrings(ctx context.Context, path, name string, value []string) error {
	encoded, err := encodeMultiString(value)
	if err != nil {
		return fmt.Errorf("config: encode registry value %s\\%s: %w", path, name, err)
	}
	return r.writeValue(ctx, path, name, registry.KindMultiSZ, nil, encoded)
}

func (r *EmulatedRegistry) CreateKey(ctx context.Context, path string) error {
	path = registry.Clean(path)
	if path == "" {
		return fmt.Errorf("config: create registry key: empty path")
	}
	if r.s.readOnly {
		return &registry.AccessDeniedError{Path: path, Err: errReadOnly}
	}

	segments := strings.Split(path, `\`)
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range segments {
			current := registry.Join(segments[:i+1]...)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO registry_keys (path, parent, name, created_at)
				VALUES (?, ?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(path) DO NOTHING
			`, current, registry.Parent(current), registry.Base(current)); err != nil {
				return fmt.Errorf("config: create registry key %s: %w", current, err)
			}
		}
		return nil
	})
}

// Protect marks path as rejecting (or, with protected=false, accepting) writes.
func (r *EmulatedRegistry) Protect(ctx context.Context, path string, protected bool) error {
	path = registry.Clean(path)
	if r.s.readOnly {
		return &registry.AccessDeniedError{Path: path, Err: errReadOnly}
	}

	flag := 0
	if protected {
		flag = 1
	}
	res, err := r.s.db.ExecContext(ctx, `UPDATE registry_keys SET protected = ? WHERE path = ?`, flag, path)
	if err != nil {
		return fmt.Errorf("config: protect registry key %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &registry.NotFoundError{Path: path}
	}
	return nil
}

// DeleteValue removes a single value. Deleting an absent value is an error.
func (r *EmulatedRegistry) DeleteValue(ctx context.Context, path, name string) error {
	path = registry.Clean(path)
	if r.s.readOnly {
		return &registry.AccessDeniedError{Path: path, Name: name, Err: errReadOnly}
	}

	res, err := r.s.db.ExecContext(ctx, `DELETE FROM registry_values WHERE key_path = ? AND name = ?`, path, name)
	if err != nil {
		return fmt.Errorf("config: delete registry value %s\\%s: %w", path, name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &registry.NotFoundError{Path: path, Name: name}
	}
	return nil
}

// DeleteKey removes path together with its subkeys and values.
func (r *EmulatedRegistry) DeleteKey(ctx context.Context, path string) error {
	path = registry.Clean(path)
	if r.s.readOnly {
		return &registry.AccessDeniedError{Path: path, Err: errReadOnly}
	}

	res, err := r.s.db.ExecContext(ctx, `
		DELETE FROM registry_keys
		WHERE path = ?
		   OR lower(substr(path, 1, length(?) + 1)) = lower(? || '\')
	`, path, path, path)
	if err != nil {
		return fmt.Errorf("config: delete registry key %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &registry.NotFoundError{Path: path}
	}
	return nil
}

// Reset removes every emulated key and value.
func (r *EmulatedRegistry) Reset(ctx context.Context) error {
	if r.s.readOnly {
		return &registry.AccessDeniedError{Err: errReadOnly}
	}
	if _, err := r.s.db.ExecContext(ctx, `DELETE FROM registry_keys`); err != nil {
		return fmt.Errorf("config: reset emulated registry: %w", err)
	}
	return nil
}
