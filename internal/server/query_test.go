package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/index/qdrant"
	"github.com/mohammad-safakhou/newsrag/internal/pipeline"
	"github.com/mohammad-safakhou/newsrag/models"
)

type stubEmbedder struct{ err error }

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type stubIndex struct{ err error }

func (s *stubIndex) Search(ctx context.Context, vector []float32, topK int) ([]qdrant.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []qdrant.Hit{
		{ID: 0, Score: 0.9, Payload: map[string]interface{}{"title": "Hit", "text": "hit text", "url": "https://hit"}},
	}, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, query string, passages []models.Passage) string {
	return "synthesized answer"
}

type memConv struct {
	turns map[string][]models.Turn
	err   error
}

func newMemConv() *memConv { return &memConv{turns: map[string][]models.Turn{}} }

func (c *memConv) AddMessage(ctx context.Context, sessionID, role, text string) error {
	if c.err != nil {
		return c.err
	}
	c.turns[sessionID] = append(c.turns[sessionID], models.Turn{Role: role, Text: text})
	return nil
}

func (c *memConv) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.turns[sessionID], nil
}

func (c *memConv) Clear(ctx context.Context, sessionID string) error {
	if c.err != nil {
		return c.err
	}
	delete(c.turns, sessionID)
	return nil
}

func newTestHandler(emb *stubEmbedder, idx *stubIndex, conv *memConv) *QueryHandler {
	pipe := pipeline.New(emb, idx, stubSynth{}, conv, 5, nil)
	return &QueryHandler{Pipeline: pipe, Conv: conv}
}

func TestSearchEndpoint(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, newMemConv())

	req := httptest.NewRequest(http.MethodGet, "/search?query=latest+inflation+news", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.search(ctx); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp struct {
		Answer  string           `json:"answer"`
		Sources []models.Passage `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "synthesized answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Hit" {
		t.Fatalf("unexpected sources %+v", resp.Sources)
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, newMemConv())

	req := httptest.NewRequest(http.MethodGet, "/search?query=hi", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err := handler.search(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
}

func TestSearchMapsRetrievalFailureTo503(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{err: errors.New("connection refused")}, newMemConv())

	req := httptest.NewRequest(http.MethodGet, "/search?query=valid+query", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err := handler.search(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 error, got %#v", err)
	}
}

func TestChatMintsSessionAndStoresTurns(t *testing.T) {
	e := echo.New()
	conv := newMemConv()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, conv)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"what happened today"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.chat(ctx); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Answer    string `json:"answer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	turns := conv.turns[resp.SessionID]
	if len(turns) != 2 || turns[0].Role != models.RoleUser || turns[1].Role != models.RoleBot {
		t.Fatalf("unexpected stored turns %+v", turns)
	}
}

func TestChatAcceptsFormEncodedBody(t *testing.T) {
	e := echo.New()
	conv := newMemConv()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, conv)

	form := "query=hello&session_id=sess-9"
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.chat(ctx); err != nil {
		t.Fatalf("chat: %v", err)
	}

	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess-9" {
		t.Fatalf("expected caller session id kept, got %q", resp.SessionID)
	}
}

func TestChatRejectsEmptyQuery(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, newMemConv())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err := handler.chat(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
}

func TestHistoryEndpointReturnsOrderedTurns(t *testing.T) {
	e := echo.New()
	conv := newMemConv()
	conv.turns["sess-1"] = []models.Turn{
		{Role: "user", Text: "hi"},
		{Role: "bot", Text: "hello"},
	}
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, conv)

	req := httptest.NewRequest(http.MethodGet, "/history/sess-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("session_id")
	ctx.SetParamValues("sess-1")

	if err := handler.history(ctx); err != nil {
		t.Fatalf("history: %v", err)
	}

	var turns []models.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(turns) != 2 || turns[0].Text != "hi" || turns[1].Text != "hello" {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestClearSessionEndpoint(t *testing.T) {
	e := echo.New()
	conv := newMemConv()
	conv.turns["sess-2"] = []models.Turn{{Role: "user", Text: "hi"}}
	handler := newTestHandler(&stubEmbedder{}, &stubIndex{}, conv)

	req := httptest.NewRequest(http.MethodDelete, "/session/sess-2", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("session_id")
	ctx.SetParamValues("sess-2")

	if err := handler.clearSession(ctx); err != nil {
		t.Fatalf("clearSession: %v", err)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["message"] != "Session sess-2 cleared." {
		t.Fatalf("unexpected confirmation %q", resp["message"])
	}
	if _, ok := conv.turns["sess-2"]; ok {
		t.Fatal("session history should be gone")
	}
}

func TestHistoryWithoutStoreIs503(t *testing.T) {
	e := echo.New()
	pipe := pipeline.New(&stubEmbedder{}, &stubIndex{}, stubSynth{}, nil, 5, nil)
	handler := &QueryHandler{Pipeline: pipe, Conv: nil}

	req := httptest.NewRequest(http.MethodGet, "/history/sess-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("session_id")
	ctx.SetParamValues("sess-1")

	err := handler.history(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 error, got %#v", err)
	}
}
