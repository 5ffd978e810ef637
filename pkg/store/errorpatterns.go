package store

import (
	"context"
	"database/sql"

	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// LoadErrorTable compiles the stored error patterns. An empty table falls
// back to the built-in patterns.
func (s *Store) LoadErrorTable(ctx context.Context) (*health.ErrorTable, error) {
	patterns, err := s.ListErrorPatterns(ctx)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return health.DefaultErrorTable(), nil
	}
	return health.NewErrorTable(patterns)
}

// ListErrorPatterns returns the stored patterns in lookup order.
func (s *Store) ListErrorPatterns(ctx context.Context) ([]health.Pattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor, pattern, message FROM error_patterns ORDER BY position`)
	if err != nil {
		return nil, util.NewPersistenceError("load error patterns", err)
	}
	defer rows.Close()

	var out []health.Pattern
	for rows.Next() {
		var p health.Pattern
		if err := rows.Scan(&p.Vendor, &p.Pattern, &p.Message); err != nil {
			return nil, util.NewPersistenceError("load error patterns", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("load error patterns", err)
	}
	return out, nil
}

// SaveErrorPatterns replaces the pattern table. The patterns must form a
// valid table (including a catch-all).
func (s *Store) SaveErrorPatterns(ctx context.Context, patterns []health.Pattern) error {
	if _, err := health.NewErrorTable(patterns); err != nil {
		return err
	}
	return s.withTx(ctx, "save error patterns", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM error_patterns`); err != nil {
			return util.NewPersistenceError("save error patterns", err)
		}
		for i, p := range patterns {
			vendor := p.Vendor
			if vendor == "" {
				vendor = health.AnyVendor
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO error_patterns (position, vendor, pattern, message) VALUES (?, ?, ?, ?)`,
				i, vendor, p.Pattern, p.Message); err != nil {
				return util.NewPersistenceError("save error patterns", err)
			}
		}
		return nil
	})
}
