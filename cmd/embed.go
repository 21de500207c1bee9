package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/ingest"
	embedding_provider "github.com/mohammad-safakhou/newsrag/provider/embedding"
)

func embedCMD() *cobra.Command {
	var cfgPath string
	var articlesPath string
	var outPath string
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings for scraped articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)

			articles, err := ingest.LoadArticles(articlesPath)
			if err != nil {
				return err
			}

			embedder := embedding_provider.NewClient(
				cfg.Embedding.BaseURL,
				cfg.Embedding.APIKey,
				cfg.Embedding.Model,
				cfg.Embedding.Dimension,
				cfg.Embedding.Timeout,
			)

			records, err := ingest.EmbedArticles(cmd.Context(), embedder, articles, logger)
			if err != nil {
				return err
			}
			if err := ingest.WriteRecords(outPath, records); err != nil {
				return err
			}
			logger.Printf("saved %d embeddings to %s", len(records), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	cmd.Flags().StringVar(&articlesPath, "articles", "data/articles.json", "input articles JSON")
	cmd.Flags().StringVar(&outPath, "out", "data/article_embeddings.json", "output embeddings JSON")

	return cmd
}
