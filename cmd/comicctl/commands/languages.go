package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the supported translation languages",
	RunE:  runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(cmd *cobra.Command, args []string) error {
	auto, entries, err := newAPIClient(serverURL).languages()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	fmt.Fprintf(w, "%s\tAuto (detect from the dialogue)\n", auto)
	for _, lang := range entries {
		fmt.Fprintf(w, "%s\t%s\n", lang.Code, lang.Name)
	}
	return w.Flush()
}
