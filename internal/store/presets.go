package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"brieflow/internal/preset"
	"brieflow/internal/services"
)

// ErrDuplicatePreset is returned when a preset name is already taken by another ID.
var ErrDuplicatePreset = errors.New("preset name already exists")

// SavePreset inserts or replaces a preset keyed by ID. The preset is
// normalized and validated first; the stored copy is returned.
func (s *Store) SavePreset(ctx context.Context, p preset.Preset) (preset.Preset, error) {
	ctx = ensureContext(ctx)
	p.Normalize()
	if err := p.Validate(); err != nil {
		return preset.Preset{}, services.Wrap(services.ErrValidation, "", "save preset", p.Name, err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return preset.Preset{}, fmt.Errorf("save preset: encode payload: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT id FROM presets WHERE name = ?`, p.Name).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("save preset: check name: %w", err)
		case owner != p.ID:
			return fmt.Errorf("save preset %q: %w", p.Name, ErrDuplicatePreset)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO presets (id, name, kind, payload_json, fingerprint, created_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 name = excluded.name,
                 kind = excluded.kind,
                 payload_json = excluded.payload_json,
                 fingerprint = excluded.fingerprint`,
			p.ID,
			p.Name,
			string(p.Kind),
			string(payload),
			p.Fingerprint(),
			formatTime(p.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("save preset: %w", err)
		}
		return nil
	})
	if err != nil {
		return preset.Preset{}, err
	}
	return p, nil
}

// GetPreset fetches a preset by ID or, failing that, by name.
func (s *Store) GetPreset(ctx context.Context, id string) (preset.Preset, error) {
	ctx = ensureContext(ctx)
	key := strings.TrimSpace(id)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, payload_json, created_at FROM presets WHERE id = ? OR name = ?
         ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END LIMIT 1`, key, key, key)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return preset.Preset{}, services.Wrap(services.ErrNotFound, "", "get preset", fmt.Sprintf("preset %q", key), nil)
	}
	if err != nil {
		return preset.Preset{}, fmt.Errorf("get preset: %w", err)
	}
	return p, nil
}

// ListPresets returns all presets ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]preset.Preset, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, kind, payload_json, created_at FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []preset.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset. Missing presets return services.ErrNotFound.
func (s *Store) DeletePreset(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "delete preset", fmt.Sprintf("preset %q", id), nil)
	}
	return nil
}

func scanPreset(scanner interface{ Scan(dest ...any) error }) (preset.Preset, error) {
	var (
		p          preset.Preset
		kind       string
		payload    string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &kind, &payload, &createdRaw); err != nil {
		return preset.Preset{}, err
	}
	p.Kind = preset.Kind(kind)
	p.CreatedAt = parseTime(createdRaw)
	if err := json.Unmarshal([]byte(payload), &p.Payload); err != nil {
		return preset.Preset{}, fmt.Errorf("decode preset %s payload: %w", p.ID, err)
	}
	return p, nil
}
