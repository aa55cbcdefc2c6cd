// Command adjustctl runs compositions and classifier checks from a shell.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adjustctl",
		Short: "Adjusted price engine operator tool",
		Long: `adjustctl runs one adjusted price composition against the configured
providers and prints the JSON response, or checks how a provider response
would be classified.

Configuration is read from the environment and an optional .env file, the
same way the server reads it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newComposeCmd(), newClassifyCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("adjustctl failed")
		os.Exit(1)
	}
}
