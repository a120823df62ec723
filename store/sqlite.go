// Package store provides persistent management of forced-variation
// overrides (§2.3 of SPEC_FULL.md): operator-set (experiment_key,
// user_id) -> variation_key rows that get merged into a loaded
// project.ProjectConfig's per-experiment ForcedVariations map. This is
// configuration the Bucketer consumes as input (§4.5 step 1), not a
// cache of a decision's output — spec.md's "no persistence of
// assignments" non-goal is about the latter.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fluxgate/decisionengine/project"

	_ "modernc.org/sqlite"
)

const overrideSQLiteSchema = `
CREATE TABLE IF NOT EXISTS forced_variation_overrides (
	experiment_key TEXT NOT NULL,
	user_id TEXT NOT NULL,
	variation_key TEXT NOT NULL,
	expires_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (experiment_key, user_id)
);

CREATE INDEX IF NOT EXISTS idx_overrides_expires_at
ON forced_variation_overrides(expires_at);`

// ErrOverrideNotFound is returned when an operation targets a
// (experiment_key, user_id) pair that has no override row.
var ErrOverrideNotFound = errors.New("store: override not found")

// Override is a single forced-variation row.
type Override struct {
	ExperimentKey string
	UserID        string
	VariationKey  string
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OverrideStoreConfig configures the SQLite-backed override store.
type OverrideStoreConfig struct {
	DSN string
}

// OverrideStore persists forced-variation overrides in SQLite.
type OverrideStore struct {
	db *sql.DB
}

// NewOverrideStore opens (or creates) a SQLite-backed override store.
func NewOverrideStore(cfg OverrideStoreConfig) (*OverrideStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("override store sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("override sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("override sqlite store set WAL mode: %w", err)
	}
	if _, err := db.Exec(overrideSQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("override sqlite store create schema: %w", err)
	}

	return &OverrideStore{db: db}, nil
}

// Set upserts a forced-variation override. expiresAt may be nil for an
// override with no expiry.
func (s *OverrideStore) Set(ctx context.Context, experimentKey, userID, variationKey string, expiresAt *time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO forced_variation_overrides (experiment_key, user_id, variation_key, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(experiment_key, user_id) DO UPDATE SET
	variation_key = excluded.variation_key,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at`,
		experimentKey, userID, variationKey, formatNullableTime(expiresAt),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("override sqlite store set: %w", err)
	}
	return nil
}

// Clear deletes a single override row.
func (s *OverrideStore) Clear(ctx context.Context, experimentKey, userID string) error {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM forced_variation_overrides WHERE experiment_key = ? AND user_id = ?`,
		experimentKey, userID)
	if err != nil {
		return fmt.Errorf("override sqlite store clear: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("override sqlite store clear affected rows: %w", err)
	}
	if affected == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

// ClearExperiment deletes every override row for an experiment.
func (s *OverrideStore) ClearExperiment(ctx context.Context, experimentKey string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM forced_variation_overrides WHERE experiment_key = ?`, experimentKey)
	if err != nil {
		return 0, fmt.Errorf("override sqlite store clear experiment: %w", err)
	}
	return res.RowsAffected()
}

// List returns every override row for an experiment, ordered by user ID.
func (s *OverrideStore) List(ctx context.Context, experimentKey string) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT experiment_key, user_id, variation_key, expires_at, created_at, updated_at
FROM forced_variation_overrides
WHERE experiment_key = ?
ORDER BY user_id ASC`, experimentKey)
	if err != nil {
		return nil, fmt.Errorf("override sqlite store list: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override sqlite store list rows: %w", err)
	}
	return out, nil
}

// DeleteExpired removes every override whose expires_at has passed as
// of now, returning the number of rows removed. Called by
// scheduler.ExpirySweeper.
func (s *OverrideStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM forced_variation_overrides
WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("override sqlite store delete expired: %w", err)
	}
	return res.RowsAffected()
}

// ApplyTo merges every unexpired override into cfg's matching
// experiment's ForcedVariations map, per §2.3. Overrides referencing an
// experiment key not present in cfg are silently skipped — the config
// loader and the override store are independently maintained.
func (s *OverrideStore) ApplyTo(ctx context.Context, cfg *project.ProjectConfig) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT experiment_key, user_id, variation_key, expires_at, created_at, updated_at
FROM forced_variation_overrides`)
	if err != nil {
		return fmt.Errorf("override sqlite store apply: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return err
		}
		if o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
			continue
		}
		exp, found := cfg.ExperimentByKey(o.ExperimentKey)
		if !found {
			continue
		}
		if exp.ForcedVariations == nil {
			exp.ForcedVariations = map[string]string{}
		}
		exp.ForcedVariations[o.UserID] = o.VariationKey
	}
	return rows.Err()
}

// Close releases the underlying database handle.
func (s *OverrideStore) Close() error {
	return s.db.Close()
}

func scanOverride(rows *sql.Rows) (Override, error) {
	var o Override
	var expiresAt sql.NullString
	var createdAt, updatedAt string
	if err := rows.Scan(&o.ExperimentKey, &o.UserID, &o.VariationKey, &expiresAt, &createdAt, &updatedAt); err != nil {
		return Override{}, fmt.Errorf("override sqlite store scan: %w", err)
	}
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return Override{}, fmt.Errorf("override sqlite store parse expires_at: %w", err)
		}
		o.ExpiresAt = &t
	}
	createdT, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Override{}, fmt.Errorf("override sqlite store parse created_at: %w", err)
	}
	o.CreatedAt = createdT
	updatedT, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Override{}, fmt.Errorf("override sqlite store parse updated_at: %w", err)
	}
	o.UpdatedAt = updatedT
	return o, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
