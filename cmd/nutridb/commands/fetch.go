package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/twfooddata/nutridb/cmd/nutridb/ui"
)

var fetchDataDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract the FDA nutrition dataset",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDataDir, "data-dir", "", "Directory for downloaded data")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if fetchDataDir != "" {
		cfg.Source.DataDir = fetchDataDir
	}

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	ui.Section("Dataset Fetch")

	_, err = downloadDataset(ctx, cfg, logger)
	return err
}
