package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/api"
	"github.com/restora-app/restora/internal/cache"
	"github.com/restora-app/restora/internal/session"
	"github.com/restora-app/restora/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	store  *session.Store
	guard  *session.Guard
	client *api.Client
	blobs  *api.BlobClient
	logger *log.Logger
	output io.Writer

	jobs *cache.JobCache
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Store  *session.Store
	Guard  *session.Guard
	Client *api.Client
	Blobs  *api.BlobClient
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		store:  opts.Store,
		guard:  opts.Guard,
		client: opts.Client,
		blobs:  opts.Blobs,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, uploadCommand, jobsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// jobCache lazily opens the local job-cache database.
func (r *Runner) jobCache() (*cache.JobCache, error) {
	if r.jobs != nil {
		return r.jobs, nil
	}

	db, err := shared.NewDatabase(r.config.Cache.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Cache.MaxOpenConns, r.config.Cache.MaxIdleConns)

	jobs, err := cache.NewJobCache(db)
	if err != nil {
		return nil, err
	}
	r.jobs = jobs
	return jobs, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
