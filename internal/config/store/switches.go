package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role switch outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// RoleSwitch is one journal entry describing an attempt to apply a USB role.
type RoleSwitch struct {
	ID        string
	Backend   string
	FromRole  string // empty when the previous role was unknown
	ToRole    string
	Outcome   string
	Error     string
	CreatedAt string
}

// RecordSwitch appends an entry to the role-switch journal and returns it
// with ID and CreatedAt populated.
func (s *Store) RecordSwitch(ctx context.Context, sw RoleSwitch) (RoleSwitch, error) {
	if s.readOnly {
		return RoleSwitch{}, fmt.Errorf("config: record role switch: store opened read-only")
	}
	if strings.TrimSpace(sw.ToRole) == "" {
		return RoleSwitch{}, fmt.Errorf("config: record role switch: target role required")
	}
	switch sw.Outcome {
	case OutcomeApplied, OutcomeFailed:
	default:
		return RoleSwitch{}, fmt.Errorf("config: record role switch: invalid outcome %q", sw.Outcome)
	}

	sw.ID = uuid.NewString()
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO role_switches (id, backend, from_role, to_role, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`, sw.ID, sw.Backend, sw.FromRole, sw.ToRole, sw.Outcome, sw.Error).Scan(&sw.CreatedAt); err != nil {
		return RoleSwitch{}, fmt.Errorf("config: record role switch: %w", err)
	}
	return sw, nil
}

// ListSwitches returns the most recent journal entries, newest first. A
// non-positive limit returns every entry.
func (s *Store) ListSwitches(ctx context.Context, limit int) ([]RoleSwitch, error) {
	query := `
		SELECT id, backend, from_role, to_role, outcome, error, created_at
		FROM role_switches
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("config: list role switches: %w", err)
	}
	return scanList(rows, scanRoleSwitch, "config: scan role switch", "config: iterate role switches")
}

// GetSwitch returns a single journal entry by ID.
func (s *Store) GetSwitch(ctx context.Context, id string) (RoleSwitch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, backend, from_role, to_role, outcome, error, created_at
		FROM role_switches
		WHERE id = ?
	`, id)
	sw, err := scanRoleSwitch(row)
	if err != nil {
		if isNoRows(err) {
			return RoleSwitch{}, NotFoundError{Entity: "role switch", Key: id}
		}
		return RoleSwitch{}, fmt.Errorf("config: get role switch %s: %w", id, err)
	}
	return sw, nil
}
