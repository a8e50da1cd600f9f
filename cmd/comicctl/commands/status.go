package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	job, err := newAPIClient(serverURL).status(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("File:     %s\n", job.OriginalName)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Progress: %d%% %s\n", job.Progress, job.Message)
	if job.IsMultiPage {
		fmt.Printf("Pages:    %d of %d\n", job.CurrentPage, job.TotalPages)
	}
	if job.Error != "" {
		fmt.Printf("Error:    %s\n", job.Error)
	}
	return nil
}
