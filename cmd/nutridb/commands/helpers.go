package commands

import (
	"context"
	"fmt"

	"github.com/twfooddata/nutridb/cmd/nutridb/ui"
	"github.com/twfooddata/nutridb/internal/config"
	"github.com/twfooddata/nutridb/internal/fetch"
	"github.com/twfooddata/nutridb/internal/observability"
)

// setup loads configuration and builds the logger, honoring the
// persistent flags.
func setup() (*config.Config, *observability.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}
	format := cfg.Observability.LogFormat
	if jsonLogs {
		format = "json"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: format,
	})

	return cfg, logger, nil
}

// downloadDataset fetches and extracts the dataset archive, rendering
// a byte progress bar, and returns the extracted JSON path.
func downloadDataset(ctx context.Context, cfg *config.Config, logger *observability.Logger) (string, error) {
	fetcher := fetch.NewFetcher(fetch.Config{Timeout: cfg.Source.Timeout}, logger)

	var bar *ui.DownloadProgress
	var downloaded int64
	onProgress := func(current, total int64) {
		if bar == nil {
			bar = ui.NewDownloadProgress("Downloading", total)
		}
		downloaded = current
		bar.Update(current, total)
	}

	path, err := fetcher.Fetch(ctx, cfg.Source.URL, cfg.Source.DataDir, onProgress)
	if bar != nil {
		bar.Finish(downloaded)
	}
	if err != nil {
		return "", err
	}

	ui.Success("Dataset ready: %s", path)
	return path, nil
}

// databaseTarget names the build destination for display.
func databaseTarget(cfg *config.Config) string {
	if cfg.Database.Driver == "postgres" {
		return "postgres"
	}
	return cfg.Database.SQLite.Path
}
