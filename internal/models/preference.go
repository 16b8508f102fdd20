// Package models defines the domain entities of the preference store:
// preference definitions, their translations, and stored overrides.
package models

import (
	"fmt"
	"time"
)

// Type identifies how a preference's stored text value is interpreted.
// The set of types is closed; ParseType rejects anything else.
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeInteger Type = "integer"
	TypeJSON    Type = "json"
	TypeSelect  Type = "select"
)

// Valid reports whether t is one of the known preference types.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeBoolean, TypeInteger, TypeJSON, TypeSelect:
		return true
	}
	return false
}

// ParseType converts a string into a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown preference type %q", s)
	}
	return t, nil
}

// Option is a single choice for a select-typed preference. Options keep
// their declared order, so they are stored as a JSON array rather than an
// object.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Definition is a named preference: its type, stored default value, and
// metadata governing visibility (role, category) and per-user overrides.
// The key is unique and immutable once created.
type Definition struct {
	ID                 int64     `json:"id"`
	Key                string    `json:"key"`
	Type               Type      `json:"type"`
	DefaultValue       string    `json:"default_value"`
	Role               *string   `json:"role"`
	Category           *string   `json:"category"`
	Required           bool      `json:"required"`
	Options            []Option  `json:"options,omitempty"`
	IsUserCustomizable bool      `json:"is_user_customizable"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Translation is the label and description text of a definition in one
// locale. Unique per (preference, lang) pair.
type Translation struct {
	ID           int64     `json:"id"`
	PreferenceID int64     `json:"preference_id"`
	Lang         string    `json:"lang"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Override is a stored alternate value for a definition. A nil UserID is a
// global override, distinct from the definition's own default value. Unique
// per (preference, user) pair, nil counting as its own key.
type Override struct {
	ID           int64     `json:"id"`
	PreferenceID int64     `json:"preference_id"`
	UserID       *int64    `json:"user_id"`
	Value        string    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
