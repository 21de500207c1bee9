package gemini_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/newsrag/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// client calls the Gemini generateContent REST API.
type client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gemini client. An empty API key returns
// provider.ErrNotConfigured so the caller can run without generation.
func NewClient(apiKey, model string, timeout time.Duration) (*client, error) {
	if apiKey == "" {
		return nil, provider.ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// request represents a generateContent request body.
type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// response represents a generateContent response body.
type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate submits the prompt and returns the model's text verbatim.
// HTTP 404 and 429 map to the typed errors the synthesizer keys fallback on.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("model %q: %w", c.model, provider.ErrModelNotFound)
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("model %q: %w", c.model, provider.ErrResourceExhausted)
	default:
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var geminiResp response
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *client) SetBaseURL(u string) { c.baseURL = u }
