package main

import (
	"context"

	"github.com/restora-app/restora/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes an example configuration file for editing.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("✓ Wrote %s — edit it with your backend and blob-store URLs\n", path)
}
