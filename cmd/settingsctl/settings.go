package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/settingskit/settingskit/internal/settings"
)

// userIDFlag reads the optional --user flag into the nullable scope the
// engine expects.
func userIDFlag(cmd *cli.Command) *int64 {
	if !cmd.IsSet("user") {
		return nil
	}
	id := cmd.Int("user")
	return &id
}

// GetValue resolves and prints the effective value for a key.
func (r *Runner) GetValue(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return fmt.Errorf("setting key is required")
	}

	svc, _, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	value, err := svc.Get(ctx, key, userIDFlag(cmd))
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return fmt.Errorf("setting %q does not exist", key)
		}
		return err
	}

	return r.writeJSON(map[string]any{"key": key, "value": value})
}

// SetValue writes a value for a key, globally or for one user.
func (r *Runner) SetValue(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	raw := cmd.Args().Get(1)
	if key == "" || raw == "" {
		return fmt.Errorf("setting key and value are required")
	}

	svc, _, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Values given as valid JSON keep their type: `42`, `true`, `{"a":1}`.
	// Anything else is taken as a plain string.
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	userID := userIDFlag(cmd)
	if err := svc.Set(ctx, key, value, userID, cmd.Bool("create")); err != nil {
		switch {
		case errors.Is(err, settings.ErrNotFound):
			return fmt.Errorf("setting %q does not exist (use --create to auto-create it)", key)
		case errors.Is(err, settings.ErrNotCustomizable):
			return fmt.Errorf("setting %q is not user customizable", key)
		}
		return err
	}

	if userID != nil {
		return r.writePlain("Set %s = %s for user %d", key, raw, *userID)
	}
	return r.writePlain("Set %s = %s", key, raw)
}

// ForgetValue removes the override for a key, falling back to the default.
func (r *Runner) ForgetValue(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return fmt.Errorf("setting key is required")
	}

	svc, _, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	userID := userIDFlag(cmd)
	if err := svc.Forget(ctx, key, userID); err != nil {
		return err
	}

	if userID != nil {
		return r.writePlain("Forgot %s for user %d", key, *userID)
	}
	return r.writePlain("Forgot %s", key)
}

// ListValues prints the resolved settings visible for a role or category.
func (r *Runner) ListValues(ctx context.Context, cmd *cli.Command) error {
	svc, _, cleanup, err := r.openService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	userID := userIDFlag(cmd)

	var result map[string]settings.Setting
	if category := cmd.String("category"); category != "" {
		result, err = svc.ByCategory(ctx, category, userID)
	} else {
		var role *string
		if cmd.IsSet("role") {
			v := cmd.String("role")
			role = &v
		}
		result, err = svc.All(ctx, role, userID)
	}
	if err != nil {
		return err
	}

	return r.writeJSON(result)
}

func getCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Resolve the effective value of a setting",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Resolve for this user ID instead of the global scope",
			},
		},
		Action: r.GetValue,
	}
}

func setCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write a setting value",
		ArgsUsage: "<key> <value>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Write a per-user override instead of the global value",
			},
			&cli.BoolFlag{
				Name:  "create",
				Usage: "Auto-create the definition if the key does not exist",
			},
		},
		Action: r.SetValue,
	}
}

func forgetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Remove a setting override, restoring the default",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Remove this user's override instead of the global one",
			},
		},
		Action: r.ForgetValue,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List resolved settings",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "role",
				Usage: "Include settings visible to this role",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only list settings in this category",
			},
			&cli.IntFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Apply this user's overrides",
			},
		},
		Action: r.ListValues,
	}
}
