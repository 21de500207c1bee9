package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/internal/ingest"
	"github.com/mohammad-safakhou/newsrag/internal/scrape"
)

func scrapeCMD() *cobra.Command {
	var sitemapURL string
	var outPath string
	var maxArticles int
	var render bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch articles from a news sitemap into a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
			scraper := scrape.New(maxArticles, render, 15*time.Second, logger)

			articles, err := scraper.Run(cmd.Context(), sitemapURL)
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				return fmt.Errorf("no articles scraped from %s", sitemapURL)
			}
			if err := ingest.WriteArticles(outPath, articles); err != nil {
				return err
			}
			logger.Printf("saved %d articles to %s", len(articles), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&sitemapURL, "sitemap", "", "sitemap URL to scrape")
	cmd.Flags().StringVar(&outPath, "out", "data/articles.json", "output articles JSON")
	cmd.Flags().IntVar(&maxArticles, "max", 100, "maximum articles to scrape")
	cmd.Flags().BoolVar(&render, "render", false, "render javascript-heavy pages headlessly")
	_ = cmd.MarkFlagRequired("sitemap")

	return cmd
}
