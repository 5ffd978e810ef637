package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// LoadCredentials returns every vendor's candidates in stored order.
func (s *Store) LoadCredentials(ctx context.Context) (credential.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor, username, password FROM credentials ORDER BY vendor, position`)
	if err != nil {
		return nil, util.NewPersistenceError("load credentials", err)
	}
	defer rows.Close()

	set := credential.Set{}
	for rows.Next() {
		var vendor string
		var c credential.Credential
		if err := rows.Scan(&vendor, &c.Username, &c.Password); err != nil {
			return nil, util.NewPersistenceError("load credentials", err)
		}
		set.Add(vendor, c)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("load credentials", err)
	}
	return set, nil
}

// AddCredential appends a candidate to the end of vendor's list.
func (s *Store) AddCredential(ctx context.Context, vendor string, c credential.Credential) error {
	vendor = strings.ToLower(vendor)
	return s.withTx(ctx, "add credential", func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM credentials WHERE vendor = ?`, vendor).Scan(&next); err != nil {
			return util.NewPersistenceError("add credential", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (vendor, position, username, password) VALUES (?, ?, ?, ?)`,
			vendor, next, c.Username, c.Password); err != nil {
			return util.NewPersistenceError("add credential", err)
		}
		return nil
	})
}

// ReplaceCredentials replaces the candidate lists of the vendors in set.
// Vendors not in set are left untouched.
func (s *Store) ReplaceCredentials(ctx context.Context, set credential.Set) error {
	return s.withTx(ctx, "replace credentials", func(tx *sql.Tx) error {
		for vendor, list := range set {
			vendor = strings.ToLower(vendor)
			if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE vendor = ?`, vendor); err != nil {
				return util.NewPersistenceError("replace credentials", err)
			}
			for i, c := range list {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO credentials (vendor, position, username, password) VALUES (?, ?, ?, ?)`,
					vendor, i, c.Username, c.Password); err != nil {
					return util.NewPersistenceError("replace credentials", err)
				}
			}
		}
		return nil
	})
}
