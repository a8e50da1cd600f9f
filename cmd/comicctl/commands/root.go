package commands

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "comicctl",
	Short: "Command line client for the comic translation service",
	Long: `comicctl submits comic pages or PDF chapters to a running
translation service, follows job progress and downloads the translated
result.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the translation service")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
