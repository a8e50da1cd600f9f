package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	translateSource string
	translateTarget string
	translateOutput string
	translateNoWait bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <file>",
	Short: "Submit a comic page or PDF chapter for translation",
	Long: `Translate uploads an image or PDF to the translation service. Unless
--no-wait is given it follows the job progress and downloads the
translated result when the job completes.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateSource, "source", "s", "auto", "source language code (auto detects from the dialogue)")
	translateCmd.Flags().StringVarP(&translateTarget, "target", "t", "", "target language code (required)")
	translateCmd.Flags().StringVarP(&translateOutput, "output", "o", "", "output file or directory for the result")
	translateCmd.Flags().BoolVar(&translateNoWait, "no-wait", false, "print the job id and exit without waiting")
	translateCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	jobID, err := client.submit(args[0], translateSource, translateTarget)
	if err != nil {
		return err
	}
	fmt.Println(jobID)
	if translateNoWait {
		return nil
	}

	job, err := waitForJob(client, jobID)
	if err != nil {
		return err
	}
	if job.Status == "failed" {
		return fmt.Errorf("translation failed: %s", job.Error)
	}

	saved, err := client.download(jobID, translateOutput)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", saved)
	return nil
}

// waitForJob polls the job until it reaches a terminal status, driving
// a progress bar from the reported percentage and message.
func waitForJob(client *apiClient, jobID string) (*jobStatus, error) {
	bar := progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription("Waiting in queue..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)

	for {
		job, err := client.status(jobID)
		if err != nil {
			return nil, err
		}

		if job.Message != "" {
			bar.Describe(job.Message)
		}
		_ = bar.Set(job.Progress)

		switch job.Status {
		case "completed":
			return job, nil
		case "failed":
			fmt.Fprintln(os.Stderr)
			return job, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}
