// Package settings implements the preference resolution and override
// engine: typed defaults, optional global and per-user overrides, translated
// labels, and cache-aside reads with targeted invalidation.
//
// The service is constructed with its persistence and cache collaborators;
// there is no package-level state.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/settingskit/settingskit/internal/models"
	"github.com/settingskit/settingskit/internal/storage"
)

const (
	defaultCacheTTL    = time.Hour
	defaultCachePrefix = "settingskit"
	defaultLocale      = "en"

	// Bounded fan-out for per-user cache invalidation on global writes.
	maxInvalidateConcurrent = 8
)

// Options configures a Service. Zero values fall back to sensible defaults.
type Options struct {
	CacheTTL       time.Duration
	CachePrefix    string
	DefaultLocale  string
	FallbackLocale string
}

// TranslationContent is the translated title and description text supplied
// for one locale.
type TranslationContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Setting is one resolved entry in a listing: the effective value plus the
// definition metadata a caller needs to render it.
type Setting struct {
	Key         string          `json:"key"`
	Value       any             `json:"value"`
	Type        models.Type     `json:"type"`
	Category    *string         `json:"category"`
	Required    bool            `json:"required"`
	Options     []models.Option `json:"options,omitempty"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
}

// Service is the resolution engine. All reads and writes of effective
// preference values go through it so cache coherence is maintained in one
// place.
type Service struct {
	store *storage.Store
	cache Cache
	opts  Options
}

// New creates a Service over the given persistence and cache collaborators.
// A nil cache disables caching.
func New(store *storage.Store, cache Cache, opts Options) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.CachePrefix == "" {
		opts.CachePrefix = defaultCachePrefix
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = defaultLocale
	}
	if opts.FallbackLocale == "" {
		opts.FallbackLocale = defaultLocale
	}
	return &Service{store: store, cache: cache, opts: opts}
}

// cacheEntry is the cached form of a resolved value: the stored text plus
// its type tag, so a cache hit decodes to exactly the same runtime type as
// a database read.
type cacheEntry struct {
	Type models.Type `json:"type"`
	Raw  string      `json:"raw"`
}

// Get computes the effective value for (key, userID).
//
// With a user: the user's override if one exists, else the definition's
// current default. Without a user: the global override if one exists, else
// the default. Customizability is not checked on reads; an override written
// while the definition was customizable keeps being honored.
//
// Results are cache-aside populated. Cache failures degrade to direct
// database reads.
func (s *Service) Get(ctx context.Context, key string, userID *int64) (any, error) {
	cacheKey := s.cacheKey(key, userID)

	if cached, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
		slog.Warn("cache read failed, falling back to database", "cache_key", cacheKey, "error", err)
	} else if ok {
		var entry cacheEntry
		if err := json.Unmarshal([]byte(cached), &entry); err == nil {
			if value, err := Decode(entry.Raw, entry.Type); err == nil {
				return value, nil
			}
		}
		slog.Warn("discarding undecodable cache entry", "cache_key", cacheKey)
	}

	raw, typ, err := s.resolveRaw(ctx, key, userID)
	if err != nil {
		return nil, err
	}

	value, err := Decode(raw, typ)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", key, err)
	}

	if data, err := json.Marshal(cacheEntry{Type: typ, Raw: raw}); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(data), s.opts.CacheTTL); err != nil {
			slog.Warn("cache write failed", "cache_key", cacheKey, "error", err)
		}
	}

	return value, nil
}

// resolveRaw looks up the stored text form of the effective value and the
// type to decode it with.
func (s *Service) resolveRaw(ctx context.Context, key string, userID *int64) (string, models.Type, error) {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("loading definition %q: %w", key, err)
	}

	ov, err := s.store.GetOverride(ctx, def.ID, userID)
	if err == nil {
		return ov.Value, def.Type, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", "", fmt.Errorf("loading override for %q: %w", key, err)
	}

	// No override: both the user path and the global path fall back to the
	// definition's current default. A user without an override observes
	// later global default changes immediately; there is no snapshot.
	return def.DefaultValue, def.Type, nil
}

// Set writes an effective value for (key, userID).
//
// A nil userID writes the definition's own default value, so every user
// without a personal override observes the change. A non-nil userID upserts
// a per-user override and requires the definition to be user customizable.
//
// When the key does not exist and autoCreate is true, a definition is
// created with a type inferred from the value, category "general", no role,
// and customizability matching whether the write is user scoped.
func (s *Service) Set(ctx context.Context, key string, value any, userID *int64, autoCreate bool) error {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("loading definition %q: %w", key, err)
		}
		if !autoCreate {
			return fmt.Errorf("setting %q: %w", key, ErrNotFound)
		}
		if def, err = s.autoCreateDefinition(ctx, key, value, userID); err != nil {
			return err
		}
	}

	encoded, err := Encode(value, def.Type)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", key, err)
	}

	if userID == nil {
		// Global writes mutate the default value itself rather than a
		// global override row: "the global value" and "the default" are
		// the same stored field.
		if err := s.store.UpdateDefaultValue(ctx, key, encoded); err != nil {
			return fmt.Errorf("updating default for %q: %w", key, err)
		}
	} else {
		if !def.IsUserCustomizable {
			return fmt.Errorf("setting %q for user %d: %w", key, *userID, ErrNotCustomizable)
		}
		if err := s.store.UpsertOverride(ctx, def.ID, userID, encoded); err != nil {
			return fmt.Errorf("storing override for %q: %w", key, err)
		}
	}

	s.invalidate(ctx, key, def.ID, userID)
	return nil
}

// autoCreateDefinition creates a definition on first write, inferring the
// type from the value's runtime shape.
func (s *Service) autoCreateDefinition(ctx context.Context, key string, value any, userID *int64) (models.Definition, error) {
	typ := InferType(value)
	encoded, err := Encode(value, typ)
	if err != nil {
		return models.Definition{}, fmt.Errorf("encoding value for %q: %w", key, err)
	}

	category := "general"
	def, err := s.store.CreateDefinition(ctx, models.Definition{
		Key:                key,
		Type:               typ,
		DefaultValue:       encoded,
		Category:           &category,
		IsUserCustomizable: userID != nil,
	})
	if err != nil {
		return models.Definition{}, fmt.Errorf("auto-creating definition %q: %w", key, err)
	}

	slog.Info("auto-created setting definition", "key", key, "type", typ)
	return def, nil
}

// Forget deletes the stored override for (key, userID): the global override
// row when userID is nil, the user's row otherwise. Resolution then falls
// back to the definition's current default. Forgetting a missing override
// or a missing key is a no-op.
func (s *Service) Forget(ctx context.Context, key string, userID *int64) error {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading definition %q: %w", key, err)
	}

	if err := s.store.DeleteOverride(ctx, def.ID, userID); err != nil {
		return fmt.Errorf("forgetting override for %q: %w", key, err)
	}

	s.invalidate(ctx, key, def.ID, userID)
	return nil
}

// Exists reports whether a definition with the given key exists.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.store.DefinitionExists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("checking %q: %w", key, err)
	}
	return exists, nil
}

// Has is an alias for Exists.
func (s *Service) Has(ctx context.Context, key string) (bool, error) {
	return s.Exists(ctx, key)
}

// IsEnabled resolves the setting and coerces the result to a boolean.
func (s *Service) IsEnabled(ctx context.Context, key string, userID *int64) (bool, error) {
	value, err := s.Get(ctx, key, userID)
	if err != nil {
		return false, err
	}
	return truthy(value), nil
}

// Create inserts a new definition. Returns ErrDuplicateKey if the key is
// already taken.
func (s *Service) Create(ctx context.Context, def models.Definition) (models.Definition, error) {
	if !def.Type.Valid() {
		return models.Definition{}, fmt.Errorf("creating %q: unknown preference type %q", def.Key, def.Type)
	}

	created, err := s.store.CreateDefinition(ctx, def)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return models.Definition{}, fmt.Errorf("creating %q: %w", def.Key, ErrDuplicateKey)
		}
		return models.Definition{}, fmt.Errorf("creating %q: %w", def.Key, err)
	}
	return created, nil
}

// CreateIfNotExists creates a definition under the given key unless one
// already exists, in which case it returns nil without error.
func (s *Service) CreateIfNotExists(ctx context.Context, key string, def models.Definition) (*models.Definition, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	def.Key = key
	created, err := s.Create(ctx, def)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateWithTranslations creates a definition with its translations unless
// the key already exists, in which case it returns nil without error.
func (s *Service) CreateWithTranslations(ctx context.Context, key string, def models.Definition, translations map[string]TranslationContent) (*models.Definition, error) {
	created, err := s.CreateIfNotExists(ctx, key, def)
	if err != nil || created == nil {
		return created, err
	}

	for locale, content := range translations {
		if content.Title == "" {
			continue
		}
		if err := s.store.UpsertTranslation(ctx, created.ID, locale, content.Title, content.Text); err != nil {
			return nil, fmt.Errorf("adding translation %q for %q: %w", locale, key, err)
		}
	}
	return created, nil
}

// AddTranslations adds or updates translations on an existing definition.
// Returns ErrNotFound if the key does not exist. Entries without a title
// are skipped.
func (s *Service) AddTranslations(ctx context.Context, key string, translations map[string]TranslationContent) error {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("adding translations to %q: %w", key, ErrNotFound)
		}
		return fmt.Errorf("loading definition %q: %w", key, err)
	}

	for locale, content := range translations {
		if content.Title == "" {
			continue
		}
		if err := s.store.UpsertTranslation(ctx, def.ID, locale, content.Title, content.Text); err != nil {
			return fmt.Errorf("adding translation %q for %q: %w", locale, key, err)
		}
	}
	return nil
}

// Label returns the translated title for the setting in the given locale,
// falling back to the configured fallback locale and finally to the key
// itself. Display path: it never fails.
func (s *Service) Label(ctx context.Context, key, locale string) string {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		return key
	}
	tr, ok := s.translation(ctx, def.ID, locale)
	if !ok {
		return key
	}
	return tr.Title
}

// Description returns the translated description text for the setting,
// falling back through the same chain as Label but degrading to the empty
// string.
func (s *Service) Description(ctx context.Context, key, locale string) string {
	def, err := s.store.GetDefinition(ctx, key)
	if err != nil {
		return ""
	}
	tr, ok := s.translation(ctx, def.ID, locale)
	if !ok {
		return ""
	}
	return tr.Text
}

// translation looks up a definition's translation for the locale, falling
// back to the configured fallback locale.
func (s *Service) translation(ctx context.Context, preferenceID int64, locale string) (models.Translation, bool) {
	if locale == "" {
		locale = s.opts.DefaultLocale
	}

	tr, err := s.store.GetTranslation(ctx, preferenceID, locale)
	if err == nil {
		return tr, true
	}
	if locale != s.opts.FallbackLocale {
		if tr, err = s.store.GetTranslation(ctx, preferenceID, s.opts.FallbackLocale); err == nil {
			return tr, true
		}
	}
	return models.Translation{}, false
}

// All returns settings filtered by role, keyed by setting key. A nil role
// returns only role-less definitions; a named role additionally includes
// that role's definitions. Labels and descriptions use the default locale.
func (s *Service) All(ctx context.Context, role *string, userID *int64) (map[string]Setting, error) {
	return s.AllWithTranslations(ctx, s.opts.DefaultLocale, role, userID)
}

// AllWithTranslations is All with labels and descriptions resolved in the
// given locale.
func (s *Service) AllWithTranslations(ctx context.Context, locale string, role *string, userID *int64) (map[string]Setting, error) {
	defs, err := s.store.ListDefinitions(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	return s.buildSettings(ctx, defs, userID, locale)
}

// ByCategory returns the settings in one category, keyed by setting key.
func (s *Service) ByCategory(ctx context.Context, category string, userID *int64) (map[string]Setting, error) {
	defs, err := s.store.ListDefinitionsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("listing definitions for category %q: %w", category, err)
	}
	return s.buildSettings(ctx, defs, userID, s.opts.DefaultLocale)
}

// Categories returns the distinct categories in use.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// buildSettings assembles listing entries for the given definitions.
//
// Listing values follow the definition's stored default (plus the user's
// override when a user is given); the global override row is deliberately
// not consulted here, matching single-key resolution only for user reads.
func (s *Service) buildSettings(ctx context.Context, defs []models.Definition, userID *int64, locale string) (map[string]Setting, error) {
	result := make(map[string]Setting, len(defs))
	for _, def := range defs {
		raw := def.DefaultValue
		if userID != nil {
			if ov, err := s.store.GetOverride(ctx, def.ID, userID); err == nil {
				raw = ov.Value
			} else if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("loading override for %q: %w", def.Key, err)
			}
		}

		value, err := Decode(raw, def.Type)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", def.Key, err)
		}

		entry := Setting{
			Key:      def.Key,
			Value:    value,
			Type:     def.Type,
			Category: def.Category,
			Required: def.Required,
			Options:  def.Options,
			Label:    def.Key,
		}
		if tr, ok := s.translation(ctx, def.ID, locale); ok {
			entry.Label = tr.Title
			entry.Description = tr.Text
		}
		result[def.Key] = entry
	}
	return result, nil
}

// FlushCache clears every cached entry under the configured prefix. Used
// for administrative bulk resets.
func (s *Service) FlushCache(ctx context.Context) error {
	if err := s.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flushing settings cache: %w", err)
	}
	return nil
}

// cacheKey builds the cache key for (key, userID):
// "{prefix}:{key}:global" or "{prefix}:{key}:user_{id}".
func (s *Service) cacheKey(key string, userID *int64) string {
	suffix := "global"
	if userID != nil {
		suffix = "user_" + strconv.FormatInt(*userID, 10)
	}
	return s.opts.CachePrefix + ":" + key + ":" + suffix
}

// invalidate evicts the cache entry for the touched (key, userID) pair.
// Global writes additionally evict the per-user entry of every user holding
// an override on the key; entries for users without overrides age out within
// the TTL. Invalidation is best-effort and never fails the write.
func (s *Service) invalidate(ctx context.Context, key string, preferenceID int64, userID *int64) {
	if err := s.cache.Delete(ctx, s.cacheKey(key, userID)); err != nil {
		slog.Warn("cache invalidation failed", "key", key, "error", err)
	}
	if userID != nil {
		return
	}

	ids, err := s.store.ListOverrideUserIDs(ctx, preferenceID)
	if err != nil {
		slog.Warn("listing override users for invalidation failed", "key", key, "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInvalidateConcurrent)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return s.cache.Delete(gctx, s.cacheKey(key, &id))
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("cache invalidation failed", "key", key, "error", err)
	}
}
