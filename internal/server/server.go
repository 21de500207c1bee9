package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/index/qdrant"
	"github.com/mohammad-safakhou/newsrag/internal/pipeline"
	"github.com/mohammad-safakhou/newsrag/internal/synth"
	"github.com/mohammad-safakhou/newsrag/provider"
	embedding_provider "github.com/mohammad-safakhou/newsrag/provider/embedding"
	gemini_provider "github.com/mohammad-safakhou/newsrag/provider/gemini"
	"github.com/mohammad-safakhou/newsrag/repository"
)

// Run builds all dependencies once and serves the HTTP API until the
// listener fails. Redis being down degrades history, never startup.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	embedder := embedding_provider.NewClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
		cfg.Embedding.Timeout,
	)

	// No API key means the synthesizer runs in permanent fallback mode.
	var gen provider.Generator
	if g, err := gemini_provider.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout); err == nil {
		gen = g
	} else if errors.Is(err, provider.ErrNotConfigured) {
		log.Printf("gemini api key not set; answers will use the local fallback")
	} else {
		return err
	}

	index := qdrant.New(qdrant.Config{
		BaseURL:    cfg.Qdrant.URL(),
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})

	conv, err := repository.NewConversationRepository(ctx, repository.RepoTypeRedis, cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, conversation history disabled: %v", err)
		conv = nil
	}

	synthesizer := synth.New(gen, cfg.Gemini.Timeout, nil)
	pipe := pipeline.New(embedder, index, synthesizer, conv, cfg.Retrieval.TopK, nil)

	qh := &QueryHandler{Pipeline: pipe, Conv: conv, Logger: baseLogger}
	qh.Register(e)

	if addr == "" {
		addr = cfg.General.Listen
		if addr == "" {
			addr = ":8000"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
