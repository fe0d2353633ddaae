package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/visapath/i20-processor/internal/timeline"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <program-end-date>",
	Short: "Compute the OPT timeline for a program end date",
	Long:  "Computes OPT application window dates, urgency, and action items for a YYYY-MM-DD program end date.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := timeline.Calculate(args[0], time.Now())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tl); err != nil {
			return eris.Wrap(err, "encode timeline")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
}
