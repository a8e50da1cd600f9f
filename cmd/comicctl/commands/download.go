package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Download the translated result of a completed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file or directory for the result")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	saved, err := newAPIClient(serverURL).download(args[0], downloadOutput)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", saved)
	return nil
}
