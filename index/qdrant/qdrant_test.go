package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsrag/models"
)

func newTestClient(serverURL string) *Client {
	return New(Config{BaseURL: serverURL, Collection: "news_articles", Timeout: 5 * time.Second})
}

func TestSearchRequestAndParsing(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": 0, "score": 0.91, "payload": map[string]string{"title": "A", "text": "alpha", "url": "https://a"}},
				{"id": 3, "score": 0.77, "payload": map[string]string{"title": "B", "text": "beta", "url": "https://b"}},
			},
		})
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/collections/news_articles/points/search" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["limit"].(float64) != 5 {
		t.Fatalf("expected limit 5, got %v", gotBody["limit"])
	}
	if gotBody["with_payload"] != true {
		t.Fatalf("expected with_payload, got %v", gotBody["with_payload"])
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 0 || hits[0].Score != 0.91 || hits[0].Payload["title"] != "A" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].ID != 3 || hits[1].Payload["url"] != "https://b" {
		t.Fatalf("unexpected second hit: %+v", hits[1])
	}
}

func TestSearchServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Search(context.Background(), []float32{0.1}, 5); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestSearchTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	if _, err := newTestClient(srv.URL).Search(context.Background(), []float32{0.1}, 5); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRecreateDropsThenCreatesCosineCollection(t *testing.T) {
	type call struct {
		method string
		path   string
	}
	var calls []call
	var createBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&createBody)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Recreate(context.Background(), 384); err != nil {
		t.Fatalf("Recreate: %v", err)
	}

	if len(calls) != 2 || calls[0].method != http.MethodDelete || calls[1].method != http.MethodPut {
		t.Fatalf("expected DELETE then PUT, got %+v", calls)
	}
	vectors := createBody["vectors"].(map[string]interface{})
	if vectors["size"].(float64) != 384 || vectors["distance"] != "Cosine" {
		t.Fatalf("unexpected collection config: %+v", createBody)
	}
}

func TestRecreateRejectsBadDimension(t *testing.T) {
	if err := newTestClient("http://unused").Recreate(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestUpsertWaitsForIndexing(t *testing.T) {
	var gotQuery string
	var gotBody struct {
		Points []Point `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	points := []Point{
		{ID: 0, Vector: []float32{0.5}, Payload: models.Article{Title: "T", Text: "x", URL: "https://t"}},
	}
	if err := newTestClient(srv.URL).Upsert(context.Background(), points); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if gotQuery != "wait=true" {
		t.Fatalf("expected wait=true, got %q", gotQuery)
	}
	if len(gotBody.Points) != 1 || gotBody.Points[0].Payload.Title != "T" {
		t.Fatalf("unexpected upsert body: %+v", gotBody)
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	if err := newTestClient(srv.URL).Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if called {
		t.Fatal("empty upsert must not call the index")
	}
}
