package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/index/qdrant"
	"github.com/mohammad-safakhou/newsrag/internal/ingest"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var embeddingsPath string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the vector collection from an embeddings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)

			records, err := ingest.LoadRecords(embeddingsPath)
			if err != nil {
				return err
			}

			idx := qdrant.New(qdrant.Config{
				BaseURL:    cfg.Qdrant.URL(),
				APIKey:     cfg.Qdrant.APIKey,
				Collection: cfg.Qdrant.Collection,
				Timeout:    cfg.Qdrant.Timeout,
			})

			if err := ingest.Load(cmd.Context(), idx, records, cfg.Embedding.Dimension, logger); err != nil {
				return err
			}
			logger.Printf("uploaded %d articles to collection %q", len(records), cfg.Qdrant.Collection)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	cmd.Flags().StringVar(&embeddingsPath, "embeddings", "data/article_embeddings.json", "input embeddings JSON")

	return cmd
}
