package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionSummary is the list view of an archived session.
type SessionSummary struct {
	ID           string          `json:"id"`
	Query        string          `json:"query"`
	Status       progress.Status `json:"status"`
	ReportSeen   bool            `json:"report_seen"`
	SummaryCount int             `json:"summary_count"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	DurationMs   int64           `json:"duration_ms"`
}

func newSessionSummary(r *storage.Record) SessionSummary {
	return SessionSummary{
		ID:           r.ID,
		Query:        r.Query,
		Status:       r.Status,
		ReportSeen:   r.ReportSeen,
		SummaryCount: len(r.Summaries),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		DurationMs:   r.Duration().Milliseconds(),
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns counts of archived sessions by status.
func (s *Server) handleStats(c *fiber.Ctx) error {
	records, err := s.storer.List(c.Context())
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	byStatus := make(map[progress.Status]int)
	reports := 0
	for _, r := range records {
		byStatus[r.Status]++
		if r.ReportSeen {
			reports++
		}
	}

	return c.JSON(map[string]any{
		"total_sessions": len(records),
		"final_reports":  reports,
		"by_status":      byStatus,
	})
}

// handleListSessions returns archived sessions, newest first. The optional
// status and limit query parameters narrow the list.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		limit = n
	}

	status := progress.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown status " + string(status)})
	}

	records, err := s.storer.List(c.Context())
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	sessions := make([]SessionSummary, 0, len(records))
	for _, r := range records {
		if status != "" && r.Status != status {
			continue
		}
		sessions = append(sessions, newSessionSummary(r))
		if limit > 0 && len(sessions) == limit {
			break
		}
	}

	return c.JSON(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleGetSession returns a full archived session.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	record, status, msg := s.lookup(c)
	if record == nil {
		return c.Status(status).JSON(ErrorResponse{Error: msg})
	}
	return c.JSON(record)
}

// handleGetDocument returns the session's rendered markdown document.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	record, status, msg := s.lookup(c)
	if record == nil {
		return c.Status(status).JSON(ErrorResponse{Error: msg})
	}

	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(record.Document)
}

// lookup loads the session named by the :id param. When it returns no
// record, status and msg describe the error response.
func (s *Server) lookup(c *fiber.Ctx) (*storage.Record, int, string) {
	id := c.Params("id")
	if id == "" {
		return nil, fiber.StatusBadRequest, "id parameter required"
	}

	record, err := s.storer.Get(c.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fiber.StatusNotFound, "session not found"
		}
		s.logger.Error("loading session failed", "session", id, "error", err)
		return nil, fiber.StatusInternalServerError, "failed to load session"
	}

	return record, fiber.StatusOK, ""
}
