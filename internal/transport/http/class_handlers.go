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

// ClassHandlers provides HTTP handlers for classroom management endpoints.
type ClassHandlers struct {
	hub   *core.Hub
	store store.Store
	log   *zerolog.Logger
}

// NewClassHandlers creates a new class handlers instance.
func NewClassHandlers(hub *core.Hub, st store.Store, logger *zerolog.Logger) *ClassHandlers {
	return &ClassHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// CreateClassRequest represents the create class request body.
type CreateClassRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=64"`
	Subject string `json:"subject"`
}

// ClassResponse represents a class in API responses.
type ClassResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	TeacherID string `json:"teacher_id"`
	CreatedAt string `json:"created_at"`
}

// PresenceResponse represents one live member of a class room.
type PresenceResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// CreateClass handles class creation by a teacher.
// POST /api/classes
func (h *ClassHandlers) CreateClass(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create class request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cls := &store.Class{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Subject:   req.Subject,
		TeacherID: userID,
	}
	if err := h.store.CreateClass(c.Request.Context(), cls); err != nil {
		h.log.Error().Err(err).Str("class_name", req.Name).Msg("failed to create class")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("class_id", cls.ID).Str("teacher_id", userID).Msg("class created")
	c.JSON(http.StatusCreated, classResponse(cls))
}

// ListClasses lists classes visible to the authenticated user: owned classes
// for teachers, enrolled classes for students.
// GET /api/classes
func (h *ClassHandlers) ListClasses(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var (
		classes []*store.Class
		err     error
	)
	if role == core.RoleTeacher || role == core.RoleAdmin {
		classes, err = h.store.ListClassesForTeacher(c.Request.Context(), userID)
	} else {
		classes, err = h.store.ListClassesForStudent(c.Request.Context(), userID)
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list classes")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]ClassResponse, 0, len(classes))
	for _, cls := range classes {
		out = append(out, classResponse(cls))
	}
	c.JSON(http.StatusOK, out)
}

// Enroll adds the authenticated user to a class roster.
// POST /api/classes/:id/enroll
func (h *ClassHandlers) Enroll(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	classID := c.Param("id")

	if _, err := h.store.GetClass(c.Request.Context(), classID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "class not found"})
			return
		}
		h.log.Error().Err(err).Str("class_id", classID).Msg("failed to load class")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.Enroll(c.Request.Context(), classID, userID); err != nil {
		h.log.Error().Err(err).Str("class_id", classID).Str("user_id", userID).Msg("failed to enroll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("class_id", classID).Str("user_id", userID).Msg("user enrolled")
	c.JSON(http.StatusOK, gin.H{"message": "enrolled", "class_id": classID})
}

// Unenroll removes the authenticated user from a class roster.
// DELETE /api/classes/:id/enroll
func (h *ClassHandlers) Unenroll(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	classID := c.Param("id")

	if err := h.store.Unenroll(c.Request.Context(), classID, userID); err != nil {
		h.log.Error().Err(err).Str("class_id", classID).Str("user_id", userID).Msg("failed to unenroll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "unenrolled", "class_id": classID})
}

// Presence returns the class room's live members, snapshotted from the hub.
// GET /api/classes/:id/presence
func (h *ClassHandlers) Presence(c *gin.Context) {
	classID := c.Param("id")

	members := h.hub.RoomMembers(classID)
	out := make([]PresenceResponse, 0, len(members))
	for _, m := range members {
		out = append(out, PresenceResponse{UserID: m.UserID, Role: m.Role})
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "members": out})
}

func classResponse(cls *store.Class) ClassResponse {
	return ClassResponse{
		ID:        cls.ID,
		Name:      cls.Name,
		Subject:   cls.Subject,
		TeacherID: cls.TeacherID,
		CreatedAt: cls.CreatedAt.Format(time.RFC3339),
	}
}
