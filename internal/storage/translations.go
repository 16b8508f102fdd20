package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/settingskit/settingskit/internal/models"
)

// UpsertTranslation inserts or updates the translation for (preference, lang).
func (s *Store) UpsertTranslation(ctx context.Context, preferenceID int64, lang, title, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preference_translations (preference_id, lang, title, text)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (preference_id, lang) DO UPDATE SET
			title      = excluded.title,
			text       = excluded.text,
			updated_at = datetime('now')`,
		preferenceID, lang, title, text)
	if err != nil {
		return fmt.Errorf("upserting translation %q for preference %d: %w", lang, preferenceID, err)
	}
	return nil
}

// GetTranslation retrieves the translation for (preference, lang).
// Returns ErrNotFound if no translation exists for that locale.
func (s *Store) GetTranslation(ctx context.Context, preferenceID int64, lang string) (models.Translation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, preference_id, lang, title, text, created_at, updated_at
		 FROM preference_translations
		 WHERE preference_id = ? AND lang = ?`, preferenceID, lang)

	tr, err := scanTranslation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Translation{}, ErrNotFound
		}
		return models.Translation{}, fmt.Errorf("getting translation %q for preference %d: %w", lang, preferenceID, err)
	}
	return tr, nil
}

// ListTranslations returns every translation of a definition, ordered by
// locale code.
func (s *Store) ListTranslations(ctx context.Context, preferenceID int64) ([]models.Translation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preference_id, lang, title, text, created_at, updated_at
		 FROM preference_translations
		 WHERE preference_id = ? ORDER BY lang`, preferenceID)
	if err != nil {
		return nil, fmt.Errorf("querying translations for preference %d: %w", preferenceID, err)
	}
	defer rows.Close()

	var translations []models.Translation
	for rows.Next() {
		tr, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning translation row: %w", err)
		}
		translations = append(translations, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating translation rows: %w", err)
	}
	return translations, nil
}

// DeleteTranslation removes the translation for (preference, lang).
// Deleting a non-existent translation is a no-op.
func (s *Store) DeleteTranslation(ctx context.Context, preferenceID int64, lang string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM preference_translations WHERE preference_id = ? AND lang = ?`,
		preferenceID, lang)
	if err != nil {
		return fmt.Errorf("deleting translation %q for preference %d: %w", lang, preferenceID, err)
	}
	return nil
}

func scanTranslation(row scanner) (models.Translation, error) {
	var (
		tr                 models.Translation
		createdAt, updated string
	)
	err := row.Scan(&tr.ID, &tr.PreferenceID, &tr.Lang, &tr.Title, &tr.Text, &createdAt, &updated)
	if err != nil {
		return models.Translation{}, err
	}
	tr.CreatedAt = parseTime(createdAt)
	tr.UpdatedAt = parseTime(updated)
	return tr, nil
}
