// Package pipeline orchestrates one query end to end: embed, nearest-neighbor
// search, answer synthesis, and best-effort conversation logging.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/newsrag/index/qdrant"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
	"github.com/mohammad-safakhou/newsrag/repository"
)

// Searcher is the slice of the vector index the pipeline needs. The index is
// read-only here; ingestion owns writes.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]qdrant.Hit, error)
}

// Synthesizer produces an answer from a query and its retrieved passages.
// Implementations must not fail; degraded output is still output.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, passages []models.Passage) string
}

// Result is the outcome of one answered query.
type Result struct {
	SessionID string           `json:"session_id,omitempty"`
	Answer    string           `json:"answer"`
	Sources   []models.Passage `json:"sources"`
}

// Pipeline wires the embedder, index, synthesizer and conversation store
// together. All dependencies are injected once at construction.
type Pipeline struct {
	embedder provider.Embedder
	index    Searcher
	synth    Synthesizer
	conv     repository.ConversationRepository // nil disables history
	topK     int
	logger   *log.Logger
}

func New(embedder provider.Embedder, index Searcher, synth Synthesizer, conv repository.ConversationRepository, topK int, logger *log.Logger) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{
		embedder: embedder,
		index:    index,
		synth:    synth,
		conv:     conv,
		topK:     topK,
		logger:   logger,
	}
}

// Search answers a one-shot query with no conversation state.
func (p *Pipeline) Search(ctx context.Context, query string) (Result, error) {
	if utf8.RuneCountInString(query) < 3 {
		queriesTotal.WithLabelValues("search", "rejected").Inc()
		return Result{}, models.NewValidationError("query must be at least 3 characters")
	}

	passages, err := p.retrieve(ctx, query)
	if err != nil {
		queriesTotal.WithLabelValues("search", "error").Inc()
		return Result{}, err
	}

	answer := p.synth.Synthesize(ctx, query, passages)
	queriesTotal.WithLabelValues("search", "ok").Inc()
	return Result{Answer: answer, Sources: passages}, nil
}

// Chat answers a query within a session, minting a session id when the
// caller did not supply one, and records both turns of the exchange.
// History writes are best-effort and never fail the call.
func (p *Pipeline) Chat(ctx context.Context, query, sessionID string) (Result, error) {
	if query == "" {
		queriesTotal.WithLabelValues("chat", "rejected").Inc()
		return Result{}, models.NewValidationError("query must not be empty")
	}

	passages, err := p.retrieve(ctx, query)
	if err != nil {
		queriesTotal.WithLabelValues("chat", "error").Inc()
		return Result{}, err
	}

	answer := p.synth.Synthesize(ctx, query, passages)

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	p.saveTurn(ctx, sessionID, models.RoleUser, query)
	p.saveTurn(ctx, sessionID, models.RoleBot, answer)

	queriesTotal.WithLabelValues("chat", "ok").Inc()
	return Result{SessionID: sessionID, Answer: answer, Sources: passages}, nil
}

// retrieve embeds the query and projects the topK nearest hits into
// passages, defaulting missing payload fields. The index stays read-only.
func (p *Pipeline) retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &models.EmbeddingError{Err: err}
	}
	if len(vecs) != 1 {
		return nil, &models.EmbeddingError{Err: fmt.Errorf("expected one query vector, got %d", len(vecs))}
	}

	hits, err := p.index.Search(ctx, vecs[0], p.topK)
	if err != nil {
		return nil, &models.RetrievalError{Err: err}
	}

	passages := make([]models.Passage, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, models.Passage{
			Title: payloadString(hit.Payload, "title", models.DefaultTitle),
			URL:   payloadString(hit.Payload, "url", models.DefaultURL),
			Text:  payloadString(hit.Payload, "text", models.DefaultText),
			Score: hit.Score,
		})
	}
	return passages, nil
}

func (p *Pipeline) saveTurn(ctx context.Context, sessionID, role, text string) {
	if p.conv == nil {
		return
	}
	if err := p.conv.AddMessage(ctx, sessionID, role, text); err != nil {
		p.logger.Printf("failed to save %s turn for session %s: %v", role, sessionID, err)
		conversationWriteFailures.Inc()
	}
}

func payloadString(payload map[string]interface{}, key, def string) string {
	v, ok := payload[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}
