package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the newsrag CLI.
func Execute() {
	root := &cobra.Command{
		Use:   "newsrag",
		Short: "Retrieval-augmented question answering over scraped news articles",
	}

	root.AddCommand(serveCMD(), scrapeCMD(), embedCMD(), ingestCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
