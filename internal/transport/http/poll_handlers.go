package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ameplabs/classwire-server/internal/core"
	"github.com/ameplabs/classwire-server/internal/store"
)

// PollHandlers provides HTTP handlers for polls and engagement alerts. These
// are the REST-side producers of realtime events: a persisted poll response
// or an ingested alert is forwarded to the hub for fan-out.
type PollHandlers struct {
	hub   *core.Hub
	store store.Store
	log   *zerolog.Logger
}

// NewPollHandlers creates a new poll handlers instance.
func NewPollHandlers(hub *core.Hub, st store.Store, logger *zerolog.Logger) *PollHandlers {
	return &PollHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// CreatePollRequest represents the create poll request body.
type CreatePollRequest struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required,min=2"`
}

// SubmitResponseRequest represents a student's poll answer.
type SubmitResponseRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// IngestAlertRequest represents an engagement alert produced by the
// detection pipeline. The server forwards it; it does not grade severity.
type IngestAlertRequest struct {
	ClassID   string `json:"class_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	AlertType string `json:"alert_type" binding:"required"`
	Severity  string `json:"severity" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// PollResponse represents a poll in API responses.
type PollResponse struct {
	ID             string   `json:"id"`
	ClassID        string   `json:"class_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	TotalResponses int      `json:"total_responses"`
	CreatedAt      string   `json:"created_at"`
	Closed         bool     `json:"closed"`
}

// CreatePoll handles poll creation by a teacher.
// POST /api/classes/:id/polls
func (h *PollHandlers) CreatePoll(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	classID := c.Param("id")

	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create poll request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.store.GetClass(c.Request.Context(), classID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "class not found"})
			return
		}
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to load class")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	poll := &store.Poll{
		ID:        uuid.NewString(),
		ClassID:   classID,
		Question:  req.Question,
		Options:   req.Options,
		CreatedBy: userID,
	}
	if err := h.store.CreatePoll(c.Request.Context(), poll); err != nil {
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to create poll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("poll_id", poll.ID).Str("class_id", classID).Msg("poll created")
	c.JSON(http.StatusCreated, pollResponse(poll, 0))
}

// ListPolls lists a class's polls with their current response counts.
// GET /api/classes/:id/polls
func (h *PollHandlers) ListPolls(c *gin.Context) {
	classID := c.Param("id")

	polls, err := h.store.ListPollsForClass(c.Request.Context(), classID)
	if err != nil {
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to list polls")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]PollResponse, 0, len(polls))
	for _, p := range polls {
		n, err := h.store.CountResponses(c.Request.Context(), p.ID)
		if err != nil {
			h.log.Warn().Err(err).Str("poll_id", p.ID).Msg("failed to count responses")
		}
		out = append(out, pollResponse(p, n))
	}
	c.JSON(http.StatusOK, out)
}

// SubmitResponse persists a student's answer, recomputes the aggregate count
// and forwards a poll_response_submitted event to the class room.
// POST /api/polls/:id/responses
func (h *PollHandlers) SubmitResponse(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	pollID := c.Param("id")

	var req SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "choice required"})
		return
	}

	poll, err := h.store.GetPoll(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "poll not found"})
			return
		}
		h.log.Error().Err(err).Str("poll_id", pollID).Msg("failed to load poll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if poll.ClosedAt != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "poll is closed"})
		return
	}

	err = h.store.SaveResponse(c.Request.Context(), &store.PollResponse{
		PollID: pollID,
		UserID: userID,
		Choice: req.Choice,
	})
	if err != nil {
		h.log.Error().Err(err).Str("poll_id", pollID).Msg("failed to save response")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	total, err := h.store.CountResponses(c.Request.Context(), pollID)
	if err != nil {
		h.log.Error().Err(err).Str("poll_id", pollID).Msg("failed to count responses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.hub.Dispatch(&core.Command{
		Kind:  core.CommandPollResponse,
		Class: poll.ClassID,
		Poll:  &core.PollUpdate{PollID: pollID, TotalResponses: total},
	})

	c.JSON(http.StatusOK, gin.H{"poll_id": pollID, "total_responses": total})
}

// ClosePoll closes a poll for further responses.
// POST /api/polls/:id/close
func (h *PollHandlers) ClosePoll(c *gin.Context) {
	pollID := c.Param("id")

	if err := h.store.ClosePoll(c.Request.Context(), pollID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "poll not found or already closed"})
			return
		}
		h.log.Error().Err(err).Str("poll_id", pollID).Msg("failed to close poll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"poll_id": pollID, "closed": true})
}

// IngestAlert forwards an engagement alert to the teachers of the class.
// POST /api/engagement/alerts
func (h *PollHandlers) IngestAlert(c *gin.Context) {
	var req IngestAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid engagement alert")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	h.hub.Dispatch(&core.Command{
		Kind:  core.CommandEngagementAlert,
		Class: req.ClassID,
		Alert: &core.EngagementAlert{
			StudentID: req.StudentID,
			AlertType: req.AlertType,
			Severity:  req.Severity,
			Message:   req.Message,
		},
	})

	h.log.Info().
		Str("class_id", req.ClassID).
		Str("student_id", req.StudentID).
		Str("severity", req.Severity).
		Msg("engagement alert forwarded")
	c.JSON(http.StatusAccepted, gin.H{"message": "alert forwarded"})
}

func pollResponse(p *store.Poll, total int) PollResponse {
	return PollResponse{
		ID:             p.ID,
		ClassID:        p.ClassID,
		Question:       p.Question,
		Options:        p.Options,
		TotalResponses: total,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		Closed:         p.ClosedAt != nil,
	}
}
