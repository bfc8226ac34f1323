package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Known setting keys.
const (
	SettingBackend            = "backend"
	SettingRebootDelaySeconds = "reboot_delay_seconds"
	SettingRebootEnabled      = "reboot_enabled"
)

// Registry backends selectable through SettingBackend.
const (
	BackendNative   = "native"
	BackendEmulated = "emulated"
)

// SettingKeys returns the known setting keys in sorted order.
func SettingKeys() []string {
	keys := []string{SettingBackend, SettingRebootDelaySeconds, SettingRebootEnabled}
	sort.Strings(keys)
	return keys
}

// ValidateSetting checks that key is known and value is acceptable for it.
func ValidateSetting(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case SettingBackend:
		if value != BackendNative && value != BackendEmulated {
			return fmt.Errorf("config: %s must be %q or %q", key, BackendNative, BackendEmulated)
		}
	case SettingRebootDelaySeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 600 {
			return fmt.Errorf("config: %s must be an integer between 0 and 600", key)
		}
	case SettingRebootEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("config: %s must be a boolean", key)
		}
	default:
		return fmt.Errorf("config: unknown setting %q", key)
	}
	return nil
}

// LoadSettings returns key/value settings. Optional keys limit the selection
// to specific entries.
func (s *Store) LoadSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	query := `SELECT key, value FROM settings`
	args := []any{}

	if len(keys) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(keys)), ",")
		query += fmt.Sprintf(" WHERE key IN (%s)", placeholders)
		for _, key := range keys {
			args = append(args, key)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("config: load settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		key, value, err := scanStringPair(rows)
		if err != nil {
			return nil, fmt.Errorf("config: scan settings row: %w", err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate settings rows: %w", err)
	}

	return result, nil
}

// SaveSettings upserts the provided key/value pairs.
func (s *Store) SaveSettings(ctx context.Context, values map[string]string) error {
	if s.readOnly {
		return fmt.Errorf("config: save settings: store opened read-only")
	}
	if len(values) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO settings (key, value, updated_at)
            VALUES (?, ?, CURRENT_TIMESTAMP)
            ON CONFLICT(key) DO UPDATE SET
                value = excluded.value,
                updated_at = CURRENT_TIMESTAMP
        `)
		if err != nil {
			return fmt.Errorf("config: prepare save settings: %w", err)
		}
		defer stmt.Close()

		for key, value := range values {
			if _, err := stmt.ExecContext(ctx, key, value); err != nil {
				return fmt.Errorf("config: exec save setting %q: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	values, err := s.LoadSettings(ctx, key)
	if err != nil {
		return "", err
	}
	if value, ok := values[key]; ok {
		return strings.TrimSpace(value), nil
	}
	return DefaultSettings()[key], nil
}

// Backend returns the configured registry backend.
func (s *Store) Backend(ctx context.Context) (string, error) {
	return s.setting(ctx, SettingBackend)
}

// RebootDelay returns the delay passed to the reboot command.
func (s *Store) RebootDelay(ctx context.Context) (time.Duration, error) {
	raw, err := s.setting(ctx, SettingRebootDelaySeconds)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s %q: %w", SettingRebootDelaySeconds, raw, err)
	}
	return time.Duration(n) * time.Second, nil
}

// RebootEnabled reports whether applying a role should trigger a reboot.
func (s *Store) RebootEnabled(ctx context.Context) (bool, error) {
	raw, err := s.setting(ctx, SettingRebootEnabled)
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: parse %s %q: %w", SettingRebootEnabled, raw, err)
	}
	return enabled, nil
}
