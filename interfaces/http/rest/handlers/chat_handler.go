package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/pkg/common"
	pkgerrors "tra-backend/pkg/errors"
)

// ChatHandler serves the conversational session endpoints
type ChatHandler struct {
	messages  ports.MessageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatHandler creates the chat handler
func NewChatHandler(messages ports.MessageRepository, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		messages:  messages,
		validator: validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the chat routes on the router
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions/{sessionID}/messages", func(r chi.Router) {
		r.Post("/", h.Post)
		r.Get("/", h.List)
	})
}

type postMessageRequest struct {
	Role         string `json:"role" validate:"required,oneof=user assistant system"`
	Content      string `json:"content" validate:"required,max=100000"`
	AssessmentID string `json:"assessment_id"`
}

// Post appends a message to the session transcript
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	m, err := entities.NewMessage(sessionID, entities.MessageRole(req.Role), req.Content)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	m.AssessmentID = req.AssessmentID

	if err := h.messages.Create(r.Context(), m); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, m)
}

// List returns the session transcript in chronological order
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.messages.ListBySession(r.Context(), sessionID, listOptionsFromQuery(r))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}
