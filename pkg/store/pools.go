package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

const poolColumns = `name, url1, url2, url3, worker, password`

func scanPool(row interface{ Scan(...any) error }) (model.PoolTemplate, error) {
	var p model.PoolTemplate
	err := row.Scan(&p.Name, &p.URLs[0], &p.URLs[1], &p.URLs[2], &p.Worker, &p.Password)
	return p, err
}

// GetPoolTemplate loads a pool template by name.
func (s *Store) GetPoolTemplate(ctx context.Context, name string) (model.PoolTemplate, error) {
	p, err := scanPool(s.db.QueryRowContext(ctx,
		`SELECT `+poolColumns+` FROM pool_templates WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PoolTemplate{}, fmt.Errorf("pool template %q: %w", name, util.ErrNotFound)
	}
	if err != nil {
		return model.PoolTemplate{}, util.NewPersistenceError("get pool template", err)
	}
	return p, nil
}

// ListPoolTemplates returns all templates ordered by name.
func (s *Store) ListPoolTemplates(ctx context.Context) ([]model.PoolTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+poolColumns+` FROM pool_templates ORDER BY name`)
	if err != nil {
		return nil, util.NewPersistenceError("list pool templates", err)
	}
	defer rows.Close()

	var out []model.PoolTemplate
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, util.NewPersistenceError("list pool templates", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("list pool templates", err)
	}
	return out, nil
}

// SavePoolTemplate inserts or replaces a template.
func (s *Store) SavePoolTemplate(ctx context.Context, p model.PoolTemplate) error {
	if p.Name == "" {
		return util.NewValidationError("pool template name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_templates (`+poolColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url1 = excluded.url1, url2 = excluded.url2, url3 = excluded.url3,
			worker = excluded.worker, password = excluded.password`,
		p.Name, p.URLs[0], p.URLs[1], p.URLs[2], p.Worker, p.Password)
	if err != nil {
		return util.NewPersistenceError("save pool template", err)
	}
	return nil
}
