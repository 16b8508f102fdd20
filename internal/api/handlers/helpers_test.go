package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]string{"key": "theme"})

	if w.Code != http.StatusCreated {
		t.Errorf("got status %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["key"] != "theme" {
		t.Errorf("body[key] = %q, want %q", body["key"], "theme")
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusNotFound, "Setting not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", w.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] != "Setting not found" {
		t.Errorf("body[error] = %q, want %q", body["error"], "Setting not found")
	}
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *int64
		wantErr bool
	}{
		{name: "absent", url: "/api/settings/theme", want: nil},
		{name: "empty", url: "/api/settings/theme?user_id=", want: nil},
		{name: "valid", url: "/api/settings/theme?user_id=42", want: func() *int64 { v := int64(42); return &v }()},
		{name: "not a number", url: "/api/settings/theme?user_id=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)

			got, err := parseUserID(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %d, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %d", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestOptionalString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/settings?role=admin", nil)

	if got := optionalString(r, "role"); got == nil || *got != "admin" {
		t.Errorf("optionalString(role) = %v, want admin", got)
	}
	if got := optionalString(r, "category"); got != nil {
		t.Errorf("optionalString(category) = %q, want nil", *got)
	}
}
