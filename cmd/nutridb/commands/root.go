package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	verbose  bool
	noColor  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "nutridb",
	Short: "Taiwan FDA nutrition database builder",
	Long: `nutridb converts the Taiwan FDA nutrition open dataset into a
normalized relational database with optional full-text search indexes,
and validates the result against the dataset's expected shape.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
