package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/eventstream"
	"github.com/lucidjournal/lucidd/pkg/genai"
	"github.com/lucidjournal/lucidd/pkg/journal/worker"
	"github.com/lucidjournal/lucidd/pkg/store"
	"github.com/lucidjournal/lucidd/pkg/vector"
)

// ErrorResponse is the JSON error body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateDreamRequest is the body for POST /api/dreams.
type CreateDreamRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Entry string `json:"entry"`
}

// UpdateDreamRequest is the body for PUT /api/dreams/:id. Both facets are
// overwritten with exactly these values.
type UpdateDreamRequest struct {
	Analysis string       `json:"analysis"`
	Image    *dream.Image `json:"image"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateDream persists a new record, emits a created event, and queues
// asynchronous enrichment.
func (s *Server) handleCreateDream(c *fiber.Ctx) error {
	var req CreateDreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Title == "" || req.Date == "" || req.Entry == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "title, date and entry are required"})
	}

	rec, err := s.journal.Create(c.Context(), req.Title, req.Date, req.Entry)
	if err != nil {
		return s.respondError(c, err)
	}

	if s.publisher != nil {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamCreated, rec)
		if err := s.publisher.PublishDream(c.Context(), event); err != nil {
			s.logger.Warn("publishing created event failed",
				zap.Int64("id", rec.ID),
				zap.Error(err),
			)
		}
	}

	if s.pool != nil {
		s.pool.Enqueue(worker.Job{DreamID: rec.ID})
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// handleGetDreams lists all records in creation order.
func (s *Server) handleGetDreams(c *fiber.Ctx) error {
	recs, err := s.journal.Dreams(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}

	if recs == nil {
		recs = []*dream.Record{}
	}

	return c.JSON(recs)
}

// handleGetDream fetches one record by id.
func (s *Server) handleGetDream(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid dream id"})
	}

	rec, err := s.journal.Dream(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(rec)
}

// handleUpdateDream overwrites both enrichment facets with the given values.
func (s *Server) handleUpdateDream(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid dream id"})
	}

	var req UpdateDreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	rec, err := s.journal.UpdateAnalysisAndImage(c.Context(), id, req.Analysis, req.Image)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(rec)
}

// handleGetAnalysis generates analysis text for a record on demand. The
// result is not persisted; PUT or the enrichment worker does that.
func (s *Server) handleGetAnalysis(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid dream id"})
	}

	analysis, err := s.journal.Analyze(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"analysis": analysis})
}

// handleGetImage generates an image for a record on demand. The result is
// not persisted.
func (s *Server) handleGetImage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid dream id"})
	}

	image, err := s.journal.Illustrate(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(image)
}

// handleSearchDreams returns records similar to the query text.
func (s *Server) handleSearchDreams(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter q is required"})
	}

	limit := c.QueryInt("limit")

	recs, err := s.journal.Search(c.Context(), query, limit)
	if err != nil {
		return s.respondError(c, err)
	}

	if recs == nil {
		recs = []*dream.Record{}
	}

	return c.JSON(recs)
}

// handleEnrichDream queues asynchronous enrichment for a record.
func (s *Server) handleEnrichDream(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid dream id"})
	}

	if s.pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "enrichment is not configured"})
	}

	// Verify the record exists before queueing.
	if _, err := s.journal.Dream(c.Context(), id); err != nil {
		return s.respondError(c, err)
	}

	if !s.pool.Enqueue(worker.Job{DreamID: id}) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "enrichment queue is full"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": id})
}

// respondError maps domain errors onto HTTP status codes. Absence is 404,
// persistence faults are 500, collaborator failures are 502.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	switch {
	case store.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})

	case errors.Is(err, vector.ErrEmbedding),
		errors.Is(err, vector.ErrConnection),
		errors.Is(err, genai.ErrGeneration),
		errors.Is(err, genai.ErrImageGeneration):
		s.logger.Error("collaborator failure", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})

	default:
		s.logger.Error("request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
