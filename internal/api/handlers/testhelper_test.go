package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/settingskit/settingskit/internal/models"
	"github.com/settingskit/settingskit/internal/settings"
	"github.com/settingskit/settingskit/internal/storage"
)

// newTestService creates a settings service over an in-memory SQLite store
// with migrations applied. It registers a cleanup function to close the
// database when the test completes.
func newTestService(t *testing.T) *settings.Service {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	cache := settings.NewTTLCache(time.Minute)
	t.Cleanup(cache.Stop)

	return settings.New(storage.NewStore(db), cache, settings.Options{})
}

// createSetting inserts a definition through the service, failing the test
// on error.
func createSetting(t *testing.T, svc *settings.Service, def models.Definition) {
	t.Helper()
	if _, err := svc.Create(context.Background(), def); err != nil {
		t.Fatalf("creating setting %q: %v", def.Key, err)
	}
}

// withKey injects a chi route context carrying the {key} URL parameter, so
// handlers can be invoked without a full router.
func withKey(r *http.Request, key string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("key", key)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
