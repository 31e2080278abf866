// Command pdfchatctl is the operator tool for pdfchat: it runs the ingestion and parsing
// stages offline and manages accounts in the SQL identity store.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pdfchatctl",
		Short:        "pdfchat operator tool",
		SilenceUsage: true,
	}
	root.AddCommand(
		newExtractCmd(),
		newChunkCmd(),
		newParseQuizCmd(),
		newParseFlashcardsCmd(),
		newUserCmd(),
	)
	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
