package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/outcome"
)

func newClassifyCmd() *cobra.Command {
	var (
		tokenPresent bool
		dataset      string
		status       int
		message      string
		count        int
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a provider response into an outcome",
		Long: `Classify a provider response the way the engine does and print the
outcome with its operator hint.

Examples:
  adjustctl classify --status 400 --message "Your level is register"
  adjustctl classify --token-present=false
  adjustctl classify --status 200 --message success --count 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := outcome.Classify(tokenPresent, dataset, status, message, count)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(o)
		},
	}
	cmd.Flags().BoolVar(&tokenPresent, "token-present", true, "Whether a provider token is configured")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name")
	cmd.Flags().IntVar(&status, "status", 200, "HTTP status code")
	cmd.Flags().StringVar(&message, "message", "", "Provider message")
	cmd.Flags().IntVar(&count, "count", 0, "Number of records returned")
	return cmd
}
