package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/settingskit/settingskit/internal/settings"
)

// ListSettings handles GET /api/settings. Query parameters: role filters by
// visibility role, user_id applies that user's overrides, locale selects the
// translation locale, and category restricts the listing to one category.
func ListSettings(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUserID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var result map[string]settings.Setting
		if category := r.URL.Query().Get("category"); category != "" {
			result, err = svc.ByCategory(ctx, category, userID)
		} else if locale := r.URL.Query().Get("locale"); locale != "" {
			result, err = svc.AllWithTranslations(ctx, locale, optionalString(r, "role"), userID)
		} else {
			result, err = svc.All(ctx, optionalString(r, "role"), userID)
		}
		if err != nil {
			slog.Error("failed to list settings", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list settings")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// ListCategories handles GET /api/settings/categories.
func ListCategories(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			slog.Error("failed to list categories", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list categories")
			return
		}

		writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
	}
}

// GetSetting handles GET /api/settings/{key}. It resolves the effective value
// for the optional user_id; when a locale is given, the translated label and
// description are included.
func GetSetting(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := chi.URLParam(r, "key")

		userID, err := parseUserID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		value, err := svc.Get(ctx, key, userID)
		if err != nil {
			if errors.Is(err, settings.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Setting not found")
				return
			}
			slog.Error("failed to resolve setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to resolve setting")
			return
		}

		resp := map[string]any{"key": key, "value": value}
		if locale := r.URL.Query().Get("locale"); locale != "" {
			resp["label"] = svc.Label(ctx, key, locale)
			resp["description"] = svc.Description(ctx, key, locale)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// PutSetting handles PUT /api/settings/{key}. The body carries the value and
// the optional write scope:
//
//	{"value": ..., "user_id": 123, "auto_create": false}
//
// A missing user_id writes the global value. Unknown keys yield 404 unless
// auto_create is set; writes to non-customizable settings yield 422.
func PutSetting(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := chi.URLParam(r, "key")

		var body struct {
			Value      json.RawMessage `json:"value"`
			UserID     *int64          `json:"user_id"`
			AutoCreate bool            `json:"auto_create"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if len(body.Value) == 0 {
			writeError(w, http.StatusUnprocessableEntity, "Missing value")
			return
		}

		var value any
		if err := json.Unmarshal(body.Value, &value); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid value")
			return
		}

		if err := svc.Set(ctx, key, value, body.UserID, body.AutoCreate); err != nil {
			switch {
			case errors.Is(err, settings.ErrNotFound):
				writeError(w, http.StatusNotFound, "Setting not found")
			case errors.Is(err, settings.ErrNotCustomizable):
				writeError(w, http.StatusUnprocessableEntity, "Setting is not user customizable")
			default:
				slog.Error("failed to save setting", "key", key, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to save setting")
			}
			return
		}

		// Return the effective value after the write.
		value, err := svc.Get(ctx, key, body.UserID)
		if err != nil {
			slog.Error("failed to resolve setting after save", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to resolve setting")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
	}
}

// DeleteSetting handles DELETE /api/settings/{key}. It forgets the override
// for the optional user_id; resolution falls back to the current default.
// Deleting a missing override is a no-op, so the response is always 204.
func DeleteSetting(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		userID, err := parseUserID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := svc.Forget(r.Context(), key, userID); err != nil {
			slog.Error("failed to forget setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to forget setting")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// AddTranslations handles POST /api/settings/{key}/translations. The body
// maps locale codes to translated content:
//
//	{"en": {"title": "Theme", "text": "Site color theme"}}
func AddTranslations(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		var body map[string]settings.TranslationContent
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusUnprocessableEntity, "No translations given")
			return
		}

		if err := svc.AddTranslations(r.Context(), key, body); err != nil {
			if errors.Is(err, settings.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Setting not found")
				return
			}
			slog.Error("failed to add translations", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to add translations")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// FlushCache handles POST /api/settings/flush-cache.
func FlushCache(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.FlushCache(r.Context()); err != nil {
			slog.Error("failed to flush settings cache", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to flush cache")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
