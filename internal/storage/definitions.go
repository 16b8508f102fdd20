package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/settingskit/settingskit/internal/models"
)

const definitionColumns = `id, key, type, default_value, role, category,
	required, options, is_user_customizable, created_at, updated_at`

// CreateDefinition inserts a new preference definition and returns it with
// its assigned ID. Returns ErrDuplicateKey if the key already exists.
func (s *Store) CreateDefinition(ctx context.Context, def models.Definition) (models.Definition, error) {
	options, err := encodeOptions(def.Options)
	if err != nil {
		return models.Definition{}, fmt.Errorf("encoding options for %q: %w", def.Key, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences
			(key, type, default_value, role, category, required, options, is_user_customizable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.Key, string(def.Type), def.DefaultValue, def.Role, def.Category,
		boolToInt(def.Required), options, boolToInt(def.IsUserCustomizable),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Definition{}, ErrDuplicateKey
		}
		return models.Definition{}, fmt.Errorf("creating definition %q: %w", def.Key, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Definition{}, fmt.Errorf("reading definition id for %q: %w", def.Key, err)
	}

	return s.GetDefinitionByID(ctx, id)
}

// GetDefinition retrieves a definition by its unique key.
// Returns ErrNotFound if the key does not exist.
func (s *Store) GetDefinition(ctx context.Context, key string) (models.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM preferences WHERE key = ?`, key)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Definition{}, ErrNotFound
		}
		return models.Definition{}, fmt.Errorf("getting definition %q: %w", key, err)
	}
	return def, nil
}

// GetDefinitionByID retrieves a definition by its row ID.
func (s *Store) GetDefinitionByID(ctx context.Context, id int64) (models.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM preferences WHERE id = ?`, id)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Definition{}, ErrNotFound
		}
		return models.Definition{}, fmt.Errorf("getting definition %d: %w", id, err)
	}
	return def, nil
}

// DefinitionExists reports whether a definition with the given key exists.
func (s *Store) DefinitionExists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM preferences WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking definition %q: %w", key, err)
	}
	return n > 0, nil
}

// UpdateDefaultValue overwrites the stored default value of a definition.
// Returns ErrNotFound if the key does not exist.
func (s *Store) UpdateDefaultValue(ctx context.Context, key, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE preferences SET default_value = ?, updated_at = datetime('now') WHERE key = ?`,
		value, key)
	if err != nil {
		return fmt.Errorf("updating default for %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDefinition removes a definition by key. Translations and overrides
// are removed by the foreign key cascade. Returns ErrNotFound if the key
// does not exist.
func (s *Store) DeleteDefinition(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting definition %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDefinitions returns definitions filtered by role, ordered by key.
// A nil role returns only role-less definitions; a non-nil role returns
// role-less definitions plus those matching the role.
func (s *Store) ListDefinitions(ctx context.Context, role *string) ([]models.Definition, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if role == nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+definitionColumns+` FROM preferences WHERE role IS NULL ORDER BY key`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+definitionColumns+` FROM preferences
			 WHERE role IS NULL OR role = ? ORDER BY key`, *role)
	}
	if err != nil {
		return nil, fmt.Errorf("querying definitions: %w", err)
	}
	defer rows.Close()

	return scanDefinitions(rows)
}

// ListAllDefinitions returns every definition regardless of role, ordered
// by key. Used for administrative export.
func (s *Store) ListAllDefinitions(ctx context.Context) ([]models.Definition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying definitions: %w", err)
	}
	defer rows.Close()

	return scanDefinitions(rows)
}

// ListDefinitionsByCategory returns all definitions in the given category,
// ordered by key.
func (s *Store) ListDefinitionsByCategory(ctx context.Context, category string) ([]models.Definition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM preferences WHERE category = ? ORDER BY key`,
		category)
	if err != nil {
		return nil, fmt.Errorf("querying definitions for category %q: %w", category, err)
	}
	defer rows.Close()

	return scanDefinitions(rows)
}

// ListCategories returns the distinct non-null categories, ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM preferences
		 WHERE category IS NOT NULL ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDefinition.
type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row scanner) (models.Definition, error) {
	var (
		def                models.Definition
		typ                string
		options            sql.NullString
		required, custom   int
		createdAt, updated string
	)
	err := row.Scan(&def.ID, &def.Key, &typ, &def.DefaultValue, &def.Role,
		&def.Category, &required, &options, &custom, &createdAt, &updated)
	if err != nil {
		return models.Definition{}, err
	}

	def.Type = models.Type(typ)
	def.Required = required != 0
	def.IsUserCustomizable = custom != 0
	def.CreatedAt = parseTime(createdAt)
	def.UpdatedAt = parseTime(updated)

	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &def.Options); err != nil {
			return models.Definition{}, fmt.Errorf("unmarshaling options for %q: %w", def.Key, err)
		}
	}
	return def, nil
}

func scanDefinitions(rows *sql.Rows) ([]models.Definition, error) {
	var defs []models.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning definition row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating definition rows: %w", err)
	}
	return defs, nil
}

// encodeOptions serializes select options to JSON, preserving order.
// Nil options are stored as NULL.
func encodeOptions(options []models.Option) (*string, error) {
	if options == nil {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
