package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs, newest first",
	RunE:  runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	list, err := newAPIClient(serverURL).list()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tFILE")
	for _, job := range list {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n", job.ID, job.Status, job.Progress, job.OriginalName)
	}
	return w.Flush()
}
