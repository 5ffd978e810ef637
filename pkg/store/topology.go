package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// ListContainers returns every container with its racks and devices,
// ordered by container number.
func (s *Store) ListContainers(ctx context.Context) ([]model.Container, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM containers ORDER BY num`)
	if err != nil {
		return nil, util.NewPersistenceError("list containers", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, util.NewPersistenceError("list containers", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("list containers", err)
	}

	out := make([]model.Container, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetContainer(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// GetContainer loads a container by id with racks (by index) and their
// devices (by row, column).
func (s *Store) GetContainer(ctx context.Context, id int64) (*model.Container, error) {
	c := &model.Container{}
	err := s.db.QueryRowContext(ctx, `SELECT id, num, name FROM containers WHERE id = ?`, id).
		Scan(&c.ID, &c.Num, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("container %d: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return nil, util.NewPersistenceError("get container", err)
	}

	racks, err := s.db.QueryContext(ctx,
		`SELECT id, name, idx, width, height FROM racks WHERE container_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, util.NewPersistenceError("get racks", err)
	}
	for racks.Next() {
		r := model.Rack{ContainerID: id}
		if err := racks.Scan(&r.ID, &r.Name, &r.Index, &r.Width, &r.Height); err != nil {
			racks.Close()
			return nil, util.NewPersistenceError("get racks", err)
		}
		c.Racks = append(c.Racks, r)
	}
	racks.Close()
	if err := racks.Err(); err != nil {
		return nil, util.NewPersistenceError("get racks", err)
	}

	for i := range c.Racks {
		devices, err := s.rackDevices(ctx, c.Racks[i].ID)
		if err != nil {
			return nil, err
		}
		c.Racks[i].Devices = devices
	}
	return c, nil
}

// ContainerByNum resolves a container display number to its id.
func (s *Store) ContainerByNum(ctx context.Context, num int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM containers WHERE num = ?`, num).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("container number %d: %w", num, util.ErrNotFound)
	}
	if err != nil {
		return 0, util.NewPersistenceError("find container", err)
	}
	return id, nil
}

func (s *Store) rackDevices(ctx context.Context, rackID int64) ([]model.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ip, row_idx, col_idx FROM devices WHERE rack_id = ? ORDER BY row_idx, col_idx`, rackID)
	if err != nil {
		return nil, util.NewPersistenceError("get devices", err)
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.IP, &d.Row, &d.Column); err != nil {
			return nil, util.NewPersistenceError("get devices", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("get devices", err)
	}
	return out, nil
}

// FindDevice resolves a device address to its placement.
func (s *Store) FindDevice(ctx context.Context, ip string) (model.Placement, error) {
	var p model.Placement
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.num, r.id, r.name, r.idx, d.id, d.ip, d.row_idx, d.col_idx
		FROM devices d
		JOIN racks r ON r.id = d.rack_id
		JOIN containers c ON c.id = r.container_id
		WHERE d.ip = ?`, ip).
		Scan(&p.ContainerID, &p.ContainerNum, &p.RackID, &p.RackName, &p.RackIndex,
			&p.Device.ID, &p.Device.IP, &p.Device.Row, &p.Device.Column)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Placement{}, fmt.Errorf("device %s: %w", ip, util.ErrNotFound)
	}
	if err != nil {
		return model.Placement{}, util.NewPersistenceError("find device", err)
	}
	return p, nil
}

// ImportTopology replaces the whole topology in one transaction. Every
// container is validated first; nothing is written if any check fails.
func (s *Store) ImportTopology(ctx context.Context, containers []model.Container) error {
	v := &util.ValidationBuilder{}
	nums := make(map[int]bool)
	ips := make(map[string]string)
	for i := range containers {
		c := &containers[i]
		if nums[c.Num] {
			v.AddErrorf("container number %d is duplicated", c.Num)
		}
		nums[c.Num] = true
		if err := c.Validate(); err != nil {
			var ve *util.ValidationError
			if errors.As(err, &ve) {
				for _, msg := range ve.Errors {
					v.AddError(msg)
				}
			}
		}
		for _, r := range c.Racks {
			for _, d := range r.Devices {
				where := fmt.Sprintf("container %d rack %s", c.Num, r.Name)
				if other, ok := ips[d.IP]; ok {
					v.AddErrorf("address %s appears in %s and %s", d.IP, other, where)
				}
				ips[d.IP] = where
			}
		}
	}
	if err := v.Build(); err != nil {
		return err
	}

	return s.withTx(ctx, "import topology", func(tx *sql.Tx) error {
		for _, stmt := range []string{`DELETE FROM devices`, `DELETE FROM racks`, `DELETE FROM containers`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return util.NewPersistenceError("import topology", err)
			}
		}
		for _, c := range containers {
			res, err := tx.ExecContext(ctx, `INSERT INTO containers (num, name) VALUES (?, ?)`, c.Num, c.Name)
			if err != nil {
				return util.NewPersistenceError("insert container", err)
			}
			cid, _ := res.LastInsertId()
			for _, r := range c.Racks {
				res, err := tx.ExecContext(ctx,
					`INSERT INTO racks (container_id, name, idx, width, height) VALUES (?, ?, ?, ?, ?)`,
					cid, r.Name, r.Index, r.Width, r.Height)
				if err != nil {
					return util.NewPersistenceError("insert rack", err)
				}
				rid, _ := res.LastInsertId()
				for _, d := range r.Devices {
					if _, err := tx.ExecContext(ctx,
						`INSERT INTO devices (rack_id, ip, row_idx, col_idx) VALUES (?, ?, ?, ?)`,
						rid, d.IP, d.Row, d.Column); err != nil {
						return util.NewPersistenceError("insert device", err)
					}
				}
			}
		}
		util.Infof("imported %d container(s), %d device(s)", len(containers), len(ips))
		return nil
	})
}
