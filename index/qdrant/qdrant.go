// Package qdrant is a minimal REST client for the Qdrant vector index.
// The query path only searches; ingestion rebuilds the collection wholesale.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/newsrag/models"
)

// Client talks to one named collection over Qdrant's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

// Config holds connection settings for the index service.
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// New creates a Qdrant client for the configured collection.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Point is one indexed vector plus its article payload. Ids are dense
// integers assigned at ingestion time and are not stable across rebuilds.
type Point struct {
	ID      int            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload models.Article `json:"payload"`
}

// Hit is a raw search result. Payload fields may be missing or malformed;
// the caller applies defaults.
type Hit struct {
	ID      int
	Score   float64
	Payload map[string]interface{}
}

// Recreate drops the collection if present and creates it fresh with the
// given dimension and cosine distance.
func (c *Client) Recreate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	// Deleting a collection that does not exist is fine.
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if resp, err := c.httpClient.Do(req); err == nil {
		resp.Body.Close()
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), body)
}

// Upsert writes points into the collection, waiting for them to be indexed.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]interface{}{"points": points}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection), body)
}

// Search returns the topK nearest points by cosine similarity, best first.
func (c *Client) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	reqBody := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      int                    `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection), reqBody, &resp); err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

func (c *Client) putJSON(ctx context.Context, url string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
