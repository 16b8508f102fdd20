package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	runner := NewRunner(os.Stdout)

	app := &cli.Command{
		Name:     "settingsctl",
		Usage:    "Manage settings definitions, values and overrides",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
