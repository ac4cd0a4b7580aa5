package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/restora-app/restora/internal/api"
	"github.com/restora-app/restora/internal/session"
	"github.com/restora-app/restora/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	store := session.NewStore(config.TokenFile())

	client := api.NewClient(api.ClientOpts{
		BaseURL:    config.API.BaseURL,
		HTTPClient: httpClient,
		Tokens:     store,
		Limiter:    rate.NewLimiter(rate.Limit(10), 20),
		Logger:     logger,
	})
	blobs := api.NewBlobClient(config.Blob.UploadURL, httpClient, logger)

	guard := session.NewGuard(store, client, logger)
	client.SetUnauthorizedHook(guard.HandleAuthReject)

	if err := guard.Initialize(); err != nil {
		logger.Warnf("could not restore session: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  store,
		Guard:  guard,
		Client: client,
		Blobs:  blobs,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "restora",
		Usage:    "Upload degraded images for restoration and track the jobs",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
