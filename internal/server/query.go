package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/internal/pipeline"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/repository"
)

// QueryHandler exposes the question-answering API.
type QueryHandler struct {
	Pipeline *pipeline.Pipeline
	Conv     repository.ConversationRepository // nil when redis is unavailable
	Logger   *log.Logger
}

func (h *QueryHandler) Register(e *echo.Echo) {
	e.GET("/search", h.search)
	e.POST("/chat", h.chat)
	e.GET("/history/:session_id", h.history)
	e.DELETE("/session/:session_id", h.clearSession)
}

// search answers a one-shot query. Read-only: no session is created.
func (h *QueryHandler) search(c echo.Context) error {
	res, err := h.Pipeline.Search(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// chat answers a query within a session, creating one when no id is given.
func (h *QueryHandler) chat(c echo.Context) error {
	var req struct {
		Query     string `json:"query" form:"query"`
		SessionID string `json:"session_id" form:"session_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.Pipeline.Chat(c.Request().Context(), req.Query, req.SessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// history returns the ordered turn log; unknown or expired sessions read as
// an empty list.
func (h *QueryHandler) history(c echo.Context) error {
	if h.Conv == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation store unavailable")
	}
	turns, err := h.Conv.History(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, turns)
}

// clearSession drops the session's history unconditionally. Idempotent.
func (h *QueryHandler) clearSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	if h.Conv == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation store unavailable")
	}
	if err := h.Conv.Clear(c.Request().Context(), sessionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": fmt.Sprintf("Session %s cleared.", sessionID)})
}

// httpError maps the pipeline error taxonomy onto HTTP statuses: bad input
// is the caller's fault, upstream dependency failures are 503s.
func httpError(err error) *echo.HTTPError {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	}
	var ee *models.EmbeddingError
	var re *models.RetrievalError
	if errors.As(err, &ee) || errors.As(err, &re) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
