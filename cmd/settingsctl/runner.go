package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/settingskit/settingskit/internal/config"
	"github.com/settingskit/settingskit/internal/settings"
	"github.com/settingskit/settingskit/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action.
type Runner struct {
	output io.Writer
}

// NewRunner creates a new Runner writing to the given output, defaulting to
// stdout.
func NewRunner(output io.Writer) *Runner {
	if output == nil {
		output = os.Stdout
	}
	return &Runner{output: output}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		exportCommand, importCommand, getCommand, setCommand, forgetCommand, listCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openService loads the config named by the command's --config flag and opens
// the database. CLI invocations are one-shot, so the service runs without a
// cache. The returned cleanup closes the database.
func (r *Runner) openService(cmd *cli.Command) (*settings.Service, *storage.Store, func(), error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := storage.OpenDatabase(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := storage.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	store := storage.NewStore(db)
	svc := settings.New(store, settings.NopCache{}, settings.Options{
		DefaultLocale:  cfg.Locale.Default,
		FallbackLocale: cfg.Locale.Fallback,
	})

	return svc, store, func() { db.Close() }, nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// configFlag is the per-command --config flag shared by every subcommand.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}
