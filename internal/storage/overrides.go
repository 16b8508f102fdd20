package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/settingskit/settingskit/internal/models"
)

// GetOverride retrieves the override for (preference, user). A nil userID
// looks up the global override row. Returns ErrNotFound if no row exists.
func (s *Store) GetOverride(ctx context.Context, preferenceID int64, userID *int64) (models.Override, error) {
	var row *sql.Row
	if userID == nil {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, preference_id, user_id, value, created_at, updated_at
			 FROM preference_overrides
			 WHERE preference_id = ? AND user_id IS NULL`, preferenceID)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, preference_id, user_id, value, created_at, updated_at
			 FROM preference_overrides
			 WHERE preference_id = ? AND user_id = ?`, preferenceID, *userID)
	}

	var (
		ov                 models.Override
		createdAt, updated string
	)
	err := row.Scan(&ov.ID, &ov.PreferenceID, &ov.UserID, &ov.Value, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Override{}, ErrNotFound
		}
		return models.Override{}, fmt.Errorf("getting override for preference %d: %w", preferenceID, err)
	}

	ov.CreatedAt = parseTime(createdAt)
	ov.UpdatedAt = parseTime(updated)
	return ov, nil
}

// UpsertOverride inserts or updates the override row for (preference, user)
// in a single atomic statement. The conflict target differs for global rows
// because their uniqueness is enforced by a partial index on preference_id
// alone (user_id IS NULL).
func (s *Store) UpsertOverride(ctx context.Context, preferenceID int64, userID *int64, value string) error {
	var err error
	if userID == nil {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO preference_overrides (preference_id, user_id, value)
			 VALUES (?, NULL, ?)
			 ON CONFLICT (preference_id) WHERE user_id IS NULL DO UPDATE SET
				value      = excluded.value,
				updated_at = datetime('now')`,
			preferenceID, value)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO preference_overrides (preference_id, user_id, value)
			 VALUES (?, ?, ?)
			 ON CONFLICT (preference_id, user_id) WHERE user_id IS NOT NULL DO UPDATE SET
				value      = excluded.value,
				updated_at = datetime('now')`,
			preferenceID, *userID, value)
	}
	if err != nil {
		return fmt.Errorf("upserting override for preference %d: %w", preferenceID, err)
	}
	return nil
}

// DeleteOverride removes the override row for (preference, user). A nil
// userID removes the global override row. Deleting a non-existent override
// is a no-op, not an error.
func (s *Store) DeleteOverride(ctx context.Context, preferenceID int64, userID *int64) error {
	var err error
	if userID == nil {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM preference_overrides
			 WHERE preference_id = ? AND user_id IS NULL`, preferenceID)
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM preference_overrides
			 WHERE preference_id = ? AND user_id = ?`, preferenceID, *userID)
	}
	if err != nil {
		return fmt.Errorf("deleting override for preference %d: %w", preferenceID, err)
	}
	return nil
}

// ListOverrideUserIDs returns the user IDs that currently hold a per-user
// override on the given preference. The global row (user_id NULL) is
// excluded.
func (s *Store) ListOverrideUserIDs(ctx context.Context, preferenceID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM preference_overrides
		 WHERE preference_id = ? AND user_id IS NOT NULL ORDER BY user_id`,
		preferenceID)
	if err != nil {
		return nil, fmt.Errorf("querying override users for preference %d: %w", preferenceID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning override user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating override user ids: %w", err)
	}
	return ids, nil
}

// CountOverrides returns the number of override rows (global and per-user)
// stored for the given preference.
func (s *Store) CountOverrides(ctx context.Context, preferenceID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM preference_overrides WHERE preference_id = ?`,
		preferenceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting overrides for preference %d: %w", preferenceID, err)
	}
	return n, nil
}
