package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/settingskit/settingskit/internal/models"
	"github.com/settingskit/settingskit/internal/settings"
)

// exportEntry is one setting definition in the export document, including
// its translations.
type exportEntry struct {
	Key          string                                 `json:"key"`
	Type         models.Type                            `json:"type"`
	Category     *string                                `json:"category,omitempty"`
	Role         *string                                `json:"role,omitempty"`
	Required     bool                                   `json:"required"`
	DefaultValue string                                 `json:"default_value"`
	Options      []models.Option                        `json:"options,omitempty"`
	Customizable bool                                   `json:"is_user_customizable"`
	Translations map[string]settings.TranslationContent `json:"translations,omitempty"`
}

// exportDocument is the top-level export format. Per-user overrides are
// deliberately excluded: exports carry definitions, not user data.
type exportDocument struct {
	ExportedAt time.Time     `json:"exported_at"`
	Settings   []exportEntry `json:"settings"`
}

// Export writes the setting definitions as a JSON document to stdout or the
// --file target.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	_, store, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	defs, err := store.ListAllDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("listing definitions: %w", err)
	}

	role := cmd.String("role")
	category := cmd.String("category")

	doc := exportDocument{ExportedAt: time.Now().UTC()}
	for _, def := range defs {
		if role != "" && (def.Role == nil || *def.Role != role) {
			continue
		}
		if category != "" && (def.Category == nil || *def.Category != category) {
			continue
		}

		entry := exportEntry{
			Key:          def.Key,
			Type:         def.Type,
			Category:     def.Category,
			Role:         def.Role,
			Required:     def.Required,
			DefaultValue: def.DefaultValue,
			Options:      def.Options,
			Customizable: def.IsUserCustomizable,
		}

		translations, err := store.ListTranslations(ctx, def.ID)
		if err != nil {
			return fmt.Errorf("listing translations for %q: %w", def.Key, err)
		}
		if len(translations) > 0 {
			entry.Translations = make(map[string]settings.TranslationContent, len(translations))
			for _, tr := range translations {
				entry.Translations[tr.Lang] = settings.TranslationContent{Title: tr.Title, Text: tr.Text}
			}
		}

		doc.Settings = append(doc.Settings, entry)
	}

	if file := cmd.String("file"); file != "" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
		if err := os.WriteFile(file, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing export file: %w", err)
		}
		return r.writePlain("Exported %d settings to %s", len(doc.Settings), file)
	}

	return r.writeJSON(doc)
}

// Import reads an export document and creates the definitions it contains.
// Existing keys are skipped unless --force, which overwrites their default
// value and translations. With --dry-run no writes happen.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("import file is required")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing import file: %w", err)
	}

	svc, store, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	force := cmd.Bool("force")
	dryRun := cmd.Bool("dry-run")

	var created, updated, skipped int
	for _, entry := range doc.Settings {
		if !entry.Type.Valid() {
			return fmt.Errorf("setting %q has unknown type %q", entry.Key, entry.Type)
		}

		exists, err := svc.Exists(ctx, entry.Key)
		if err != nil {
			return err
		}

		switch {
		case !exists:
			created++
			if dryRun {
				r.writePlain("would create %s", entry.Key)
				continue
			}
			if _, err := svc.CreateWithTranslations(ctx, entry.Key, models.Definition{
				Type:               entry.Type,
				DefaultValue:       entry.DefaultValue,
				Category:           entry.Category,
				Role:               entry.Role,
				Required:           entry.Required,
				Options:            entry.Options,
				IsUserCustomizable: entry.Customizable,
			}, entry.Translations); err != nil {
				return fmt.Errorf("creating %q: %w", entry.Key, err)
			}

		case force:
			updated++
			if dryRun {
				r.writePlain("would update %s", entry.Key)
				continue
			}
			if err := store.UpdateDefaultValue(ctx, entry.Key, entry.DefaultValue); err != nil {
				return fmt.Errorf("updating %q: %w", entry.Key, err)
			}
			if len(entry.Translations) > 0 {
				if err := svc.AddTranslations(ctx, entry.Key, entry.Translations); err != nil {
					return fmt.Errorf("updating translations for %q: %w", entry.Key, err)
				}
			}

		default:
			skipped++
			r.writePlain("skipping existing %s (use --force to overwrite)", entry.Key)
		}
	}

	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	return r.writePlain("%s %d settings: %d created, %d updated, %d skipped",
		verb, len(doc.Settings), created, updated, skipped)
}

// exportCommand dumps setting definitions as JSON.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export setting definitions as a JSON document",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Only export settings with this role",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only export settings in this category",
			},
		},
		Action: r.Export,
	}
}

// importCommand loads setting definitions from a JSON export.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import setting definitions from a JSON export",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite default values and translations of existing settings",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would change without writing",
			},
		},
		Action: r.Import,
	}
}
