// Package synth produces the answer text for a query from its retrieved
// passages. The primary path delegates to a generative model; a local
// keyword-overlap summarizer covers every failure of that path.
package synth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

var fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsrag_generation_fallback_total",
	Help: "Answers produced by the local fallback instead of the generative model.",
})

const (
	snippetChars = 150

	disclaimer = "\nNote: This is a simplified response as the AI service is currently unavailable."
)

// Synthesizer turns (query, passages) into an answer string. It never fails:
// any generation error degrades to the fallback path.
type Synthesizer struct {
	gen     provider.Generator // nil means permanent fallback mode
	timeout time.Duration
	logger  *log.Logger
}

func New(gen provider.Generator, timeout time.Duration, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)
	}
	return &Synthesizer{gen: gen, timeout: timeout, logger: logger}
}

// Synthesize returns an answer for the query grounded in the passages.
// Passages are assumed pre-sorted by relevance by the caller.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, passages []models.Passage) string {
	if s.gen == nil {
		fallbackTotal.Inc()
		return fallbackAnswer(query, passages, provider.ErrNotConfigured)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	answer, err := s.gen.Generate(ctx, buildPrompt(query, passages))
	if err != nil {
		s.logger.Printf("generation failed, answering locally: %v", err)
		fallbackTotal.Inc()
		return fallbackAnswer(query, passages, err)
	}
	return answer
}

// buildPrompt concatenates every passage with the query and an instruction
// to answer comprehensively and flag missing information.
func buildPrompt(query string, passages []models.Passage) string {
	blocks := make([]string, 0, len(passages))
	for _, p := range passages {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nText: %s\nURL: %s", p.Title, p.Text, p.URL))
	}

	return fmt.Sprintf(`User Query: %s

Context Information:
%s

Based on the above information, please provide a comprehensive answer to the user's query.
If the information isn't sufficient, please indicate what's missing.
Include relevant facts from the provided context.`, query, strings.Join(blocks, "\n\n"))
}

// fallbackAnswer composes a deterministic local answer: passages whose title
// or text contains any query term, in input order, or the first two passages
// when nothing matches. Must return a string for any input.
func fallbackAnswer(query string, passages []models.Passage, cause error) string {
	var b strings.Builder

	if len(passages) == 0 {
		fmt.Fprintf(&b, "No information is available to answer '%s'.\n", query)
		b.WriteString(disclaimer)
		if cause != nil {
			fmt.Fprintf(&b, "\n\nError: %s", cause.Error())
		}
		return b.String()
	}

	terms := queryTerms(query)

	var relevant []models.Passage
	for _, p := range passages {
		if matchesAny(p, terms) {
			relevant = append(relevant, p)
		}
	}
	if len(relevant) == 0 {
		// No direct matches: take the top two, relying on caller order.
		if len(passages) > 2 {
			relevant = passages[:2]
		} else {
			relevant = passages
		}
	}

	fmt.Fprintf(&b, "Based on the available information about '%s':\n\n", query)
	for _, p := range relevant {
		fmt.Fprintf(&b, "From %s: %s...\n\n", p.Title, snippet(p.Text))
	}
	b.WriteString(disclaimer)
	if cause != nil {
		fmt.Fprintf(&b, "\n\nError: %s", cause.Error())
	}
	return b.String()
}

// queryTerms lowercases and splits the query on whitespace, dropping
// duplicates.
func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = struct{}{}
	}
	return terms
}

func matchesAny(p models.Passage, terms map[string]struct{}) bool {
	title := strings.ToLower(p.Title)
	text := strings.ToLower(p.Text)
	for t := range terms {
		if strings.Contains(title, t) || strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetChars {
		return string(runes[:snippetChars])
	}
	return text
}
