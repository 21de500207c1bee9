// Package ingest holds the offline batch jobs: embedding scraped articles
// and rebuilding the vector collection from an embeddings file. Both are
// linear, retry-a-few-times-and-log affairs.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mohammad-safakhou/newsrag/index/qdrant"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

const (
	embedBatchSize  = 32
	upsertBatchSize = 64
	retryAttempts   = 3
)

var retryDelay = 2 * time.Second

// Record is one embedded article as persisted in the embeddings file.
type Record struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	Embedding []float32 `json:"embedding"`
}

// Index is the write-side of the vector index the loader needs.
type Index interface {
	Recreate(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []qdrant.Point) error
}

// EmbedArticles embeds article texts in batches, pairing each article with
// its vector in input order.
func EmbedArticles(ctx context.Context, embedder provider.Embedder, articles []models.Article, logger *log.Logger) ([]Record, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}

	records := make([]Record, 0, len(articles))
	for start := 0; start < len(articles); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		texts := make([]string, len(batch))
		for i, a := range batch {
			texts[i] = a.Text
		}

		var vecs [][]float32
		err := withRetry(logger, fmt.Sprintf("embed batch %d-%d", start, end), func() error {
			var embedErr error
			vecs, embedErr = embedder.Embed(ctx, texts)
			return embedErr
		})
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d-%d: expected %d vectors, got %d", start, end, len(batch), len(vecs))
		}

		for i, a := range batch {
			records = append(records, Record{Title: a.Title, Text: a.Text, URL: a.URL, Embedding: vecs[i]})
		}
		logger.Printf("embedded %d/%d articles", end, len(articles))
	}
	return records, nil
}

// Load drops and recreates the collection, then upserts every record with a
// dense integer id. Ids are positional and not stable across rebuilds;
// nothing downstream may persist them.
func Load(ctx context.Context, idx Index, records []Record, dimension int, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}

	for i, r := range records {
		if len(r.Embedding) != dimension {
			return fmt.Errorf("record %d (%s): expected %d-dim embedding, got %d", i, r.URL, dimension, len(r.Embedding))
		}
	}

	if err := withRetry(logger, "recreate collection", func() error {
		return idx.Recreate(ctx, dimension)
	}); err != nil {
		return err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		points := make([]qdrant.Point, 0, end-start)
		for i := start; i < end; i++ {
			r := records[i]
			points = append(points, qdrant.Point{
				ID:      i,
				Vector:  r.Embedding,
				Payload: models.Article{Title: r.Title, Text: r.Text, URL: r.URL},
			})
		}

		if err := withRetry(logger, fmt.Sprintf("upsert points %d-%d", start, end), func() error {
			return idx.Upsert(ctx, points)
		}); err != nil {
			return err
		}
		logger.Printf("uploaded %d/%d points", end, len(records))
	}
	return nil
}

// LoadArticles reads a scraped-articles JSON file.
func LoadArticles(path string) ([]models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return articles, nil
}

// WriteArticles writes a scraped-articles JSON file.
func WriteArticles(path string, articles []models.Article) error {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRecords reads an embeddings JSON file.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// WriteRecords writes an embeddings JSON file.
func WriteRecords(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func withRetry(logger *log.Logger, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		logger.Printf("%s failed (attempt %d/%d): %v", what, attempt, retryAttempts, err)
		if attempt < retryAttempts {
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, retryAttempts, err)
}
