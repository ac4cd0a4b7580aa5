package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/pipeline"
	"github.com/restora-app/restora/internal/shared"
	"github.com/urfave/cli/v3"
)

// stringArg returns the parsed value of the named string argument, or its
// default when absent. cli v3.0.0-beta1 has no Command.StringArg method; this
// mirrors the lookup that later v3 releases provide.
func stringArg(cmd *cli.Command, name string) string {
	for _, arg := range cmd.Arguments {
		if sa, ok := arg.(*cli.StringArg); ok && sa.Name == name {
			if sa.Values != nil && len(*sa.Values) > 0 {
				return (*sa.Values)[0]
			}
			return sa.Value
		}
	}
	return ""
}

// Upload drives the full pipeline for one file: select, upload to the blob
// store, register the job, report the outcome.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard.Require(); err != nil {
		return err
	}

	path := stringArg(cmd, "path")
	if path == "" {
		return fmt.Errorf("%w: path to an image file", shared.ErrMissingArgument)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", shared.ErrInvalidInput, path)
	}

	pipe := pipeline.New(r.blobs, r.client, r.logger)
	pipe.Select(models.FileRef{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	})

	r.writePlain("Uploading %s...\n", filepath.Base(path))
	if err := pipe.Run(ctx); err != nil {
		state := pipe.State()
		r.writePlain("✗ Upload failed: %s\n", state.ErrorMessage)
		return err
	}

	state := pipe.State()
	r.writePlain("✓ Job accepted (storage key %s)\n", state.RemoteKey)
	r.writePlain("Track progress with `restora jobs list`\n")
	return nil
}
