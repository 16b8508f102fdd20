package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/settingskit/settingskit/internal/models"
)

// strPtr returns a pointer to s. Test convenience for nullable columns.
func strPtr(s string) *string { return &s }

// createTestDefinition inserts a minimal definition and returns it.
func createTestDefinition(t *testing.T, store *Store, key string) models.Definition {
	t.Helper()

	def, err := store.CreateDefinition(context.Background(), models.Definition{
		Key:          key,
		Type:         models.TypeString,
		DefaultValue: "default",
	})
	if err != nil {
		t.Fatalf("CreateDefinition(%q) error: %v", key, err)
	}
	return def
}

func TestCreateDefinition_AndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateDefinition(ctx, models.Definition{
		Key:          "site_name",
		Type:         models.TypeString,
		DefaultValue: "My Site",
		Role:         strPtr("admin"),
		Category:     strPtr("branding"),
		Required:     true,
	})
	if err != nil {
		t.Fatalf("CreateDefinition() error: %v", err)
	}
	if created.ID == 0 {
		t.Error("created definition has zero ID")
	}

	got, err := store.GetDefinition(ctx, "site_name")
	if err != nil {
		t.Fatalf("GetDefinition() error: %v", err)
	}
	if got.Key != "site_name" {
		t.Errorf("Key = %q, want %q", got.Key, "site_name")
	}
	if got.Type != models.TypeString {
		t.Errorf("Type = %q, want %q", got.Type, models.TypeString)
	}
	if got.DefaultValue != "My Site" {
		t.Errorf("DefaultValue = %q, want %q", got.DefaultValue, "My Site")
	}
	if got.Role == nil || *got.Role != "admin" {
		t.Errorf("Role = %v, want %q", got.Role, "admin")
	}
	if got.Category == nil || *got.Category != "branding" {
		t.Errorf("Category = %v, want %q", got.Category, "branding")
	}
	if !got.Required {
		t.Error("Required = false, want true")
	}
	if got.IsUserCustomizable {
		t.Error("IsUserCustomizable = true, want false")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestCreateDefinition_DuplicateKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createTestDefinition(t, store, "theme")

	_, err := store.CreateDefinition(ctx, models.Definition{
		Key:  "theme",
		Type: models.TypeString,
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got: %v", err)
	}
}

func TestCreateDefinition_SelectOptionsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	options := []models.Option{
		{Value: "light", Label: "Light"},
		{Value: "dark", Label: "Dark"},
		{Value: "auto", Label: "Follow system"},
	}

	_, err := store.CreateDefinition(ctx, models.Definition{
		Key:          "theme",
		Type:         models.TypeSelect,
		DefaultValue: "light",
		Options:      options,
	})
	if err != nil {
		t.Fatalf("CreateDefinition() error: %v", err)
	}

	got, err := store.GetDefinition(ctx, "theme")
	if err != nil {
		t.Fatalf("GetDefinition() error: %v", err)
	}
	if len(got.Options) != 3 {
		t.Fatalf("got %d options, want 3", len(got.Options))
	}
	// Order must survive the round trip.
	for i, opt := range options {
		if got.Options[i] != opt {
			t.Errorf("Options[%d] = %+v, want %+v", i, got.Options[i], opt)
		}
	}
}

func TestGetDefinition_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDefinition(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDefinitionExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createTestDefinition(t, store, "theme")

	exists, err := store.DefinitionExists(ctx, "theme")
	if err != nil {
		t.Fatalf("DefinitionExists() error: %v", err)
	}
	if !exists {
		t.Error("DefinitionExists(theme) = false, want true")
	}

	exists, err = store.DefinitionExists(ctx, "missing")
	if err != nil {
		t.Fatalf("DefinitionExists() error: %v", err)
	}
	if exists {
		t.Error("DefinitionExists(missing) = true, want false")
	}
}

func TestUpdateDefaultValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createTestDefinition(t, store, "theme")

	if err := store.UpdateDefaultValue(ctx, "theme", "dark"); err != nil {
		t.Fatalf("UpdateDefaultValue() error: %v", err)
	}

	got, err := store.GetDefinition(ctx, "theme")
	if err != nil {
		t.Fatalf("GetDefinition() error: %v", err)
	}
	if got.DefaultValue != "dark" {
		t.Errorf("DefaultValue = %q, want %q", got.DefaultValue, "dark")
	}
}

func TestUpdateDefaultValue_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateDefaultValue(context.Background(), "missing", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteDefinition_CascadesToChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := createTestDefinition(t, store, "theme")

	if err := store.UpsertTranslation(ctx, def.ID, "en", "Theme", "Site theme"); err != nil {
		t.Fatalf("UpsertTranslation() error: %v", err)
	}
	userID := int64(7)
	if err := store.UpsertOverride(ctx, def.ID, &userID, "dark"); err != nil {
		t.Fatalf("UpsertOverride() error: %v", err)
	}

	if err := store.DeleteDefinition(ctx, "theme"); err != nil {
		t.Fatalf("DeleteDefinition() error: %v", err)
	}

	// Children must be gone via the FK cascade.
	if _, err := store.GetTranslation(ctx, def.ID, "en"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected translation ErrNotFound after cascade, got: %v", err)
	}
	if _, err := store.GetOverride(ctx, def.ID, &userID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected override ErrNotFound after cascade, got: %v", err)
	}
}

func TestDeleteDefinition_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteDefinition(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestListDefinitions_RoleFiltering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate := func(key string, role *string) {
		t.Helper()
		if _, err := store.CreateDefinition(ctx, models.Definition{
			Key: key, Type: models.TypeString, Role: role,
		}); err != nil {
			t.Fatalf("CreateDefinition(%q) error: %v", key, err)
		}
	}

	mustCreate("global_a", nil)
	mustCreate("global_b", nil)
	mustCreate("admin_only", strPtr("admin"))
	mustCreate("editor_only", strPtr("editor"))

	// Nil role: only role-less definitions.
	defs, err := store.ListDefinitions(ctx, nil)
	if err != nil {
		t.Fatalf("ListDefinitions(nil) error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}

	// Named role: role-less plus that role.
	defs, err = store.ListDefinitions(ctx, strPtr("admin"))
	if err != nil {
		t.Fatalf("ListDefinitions(admin) error: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}
	keys := make(map[string]bool)
	for _, d := range defs {
		keys[d.Key] = true
	}
	if keys["editor_only"] {
		t.Error("ListDefinitions(admin) included editor_only")
	}
}

func TestListAllDefinitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for key, role := range map[string]*string{
		"global_a":    nil,
		"admin_only":  strPtr("admin"),
		"editor_only": strPtr("editor"),
	} {
		if _, err := store.CreateDefinition(ctx, models.Definition{
			Key: key, Type: models.TypeString, Role: role,
		}); err != nil {
			t.Fatalf("CreateDefinition(%q) error: %v", key, err)
		}
	}

	defs, err := store.ListAllDefinitions(ctx)
	if err != nil {
		t.Fatalf("ListAllDefinitions() error: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3 (all roles included)", len(defs))
	}
	// Ordered by key.
	if defs[0].Key != "admin_only" {
		t.Errorf("first key = %q, want admin_only", defs[0].Key)
	}
}

func TestListDefinitionsByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for key, category := range map[string]string{
		"smtp_host": "mail",
		"smtp_port": "mail",
		"site_name": "branding",
	} {
		if _, err := store.CreateDefinition(ctx, models.Definition{
			Key: key, Type: models.TypeString, Category: strPtr(category),
		}); err != nil {
			t.Fatalf("CreateDefinition(%q) error: %v", key, err)
		}
	}

	defs, err := store.ListDefinitionsByCategory(ctx, "mail")
	if err != nil {
		t.Fatalf("ListDefinitionsByCategory() error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	// Ordered by key.
	if defs[0].Key != "smtp_host" || defs[1].Key != "smtp_port" {
		t.Errorf("got keys %q, %q; want smtp_host, smtp_port", defs[0].Key, defs[1].Key)
	}
}

func TestListCategories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateDefinition(ctx, models.Definition{
		Key: "a", Type: models.TypeString, Category: strPtr("mail"),
	}); err != nil {
		t.Fatalf("CreateDefinition(a) error: %v", err)
	}
	if _, err := store.CreateDefinition(ctx, models.Definition{
		Key: "b", Type: models.TypeString, Category: strPtr("branding"),
	}); err != nil {
		t.Fatalf("CreateDefinition(b) error: %v", err)
	}
	// Uncategorised definitions must not produce a category.
	if _, err := store.CreateDefinition(ctx, models.Definition{
		Key: "c", Type: models.TypeString,
	}); err != nil {
		t.Fatalf("CreateDefinition(c) error: %v", err)
	}

	categories, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(categories))
	}
	if categories[0] != "branding" || categories[1] != "mail" {
		t.Errorf("got categories %v, want [branding mail]", categories)
	}
}
