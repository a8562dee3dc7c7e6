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

// DocumentHandler serves the document metadata endpoints
type DocumentHandler struct {
	documents ports.DocumentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentHandler creates the document handler
func NewDocumentHandler(documents ports.DocumentRepository, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		validator: validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the document routes on the router
func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{documentID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/status", h.UpdateStatus)
			r.Put("/summary", h.UpdateSummary)
		})
	})
	r.Get("/sessions/{sessionID}/documents", h.ListBySession)
}

type createDocumentRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=500"`
	ContentType string `json:"content_type" validate:"max=200"`
	S3Key       string `json:"s3_key" validate:"max=1024"`
	FileSize    int64  `json:"file_size" validate:"min=0"`
}

// Create registers an uploaded document for a session
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	d, err := entities.NewDocument(req.SessionID, req.Filename, req.ContentType, req.S3Key, req.FileSize)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.documents.Create(r.Context(), d); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, d)
}

// Get returns one document by ID
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.documents.GetByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, d)
}

type updateDocumentStatusRequest struct {
	Action  string   `json:"action" validate:"required,oneof=processing ready failed"`
	Summary string   `json:"summary" validate:"max=5000"`
	Tags    []string `json:"tags" validate:"max=50,dive,max=100"`
	Reason  string   `json:"reason" validate:"max=1000"`
	Version int64    `json:"version" validate:"required,min=1"`
}

// UpdateStatus advances a document through its ingestion states. A ready
// document carries the derived summary and tags; a failed one the reason.
func (h *DocumentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateDocumentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	d, err := h.documents.GetByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	d.Version = req.Version

	switch req.Action {
	case "processing":
		err = d.MarkProcessing()
	case "ready":
		err = d.MarkReady(req.Summary, req.Tags)
	case "failed":
		err = d.MarkFailed(req.Reason)
	}
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.documents.Update(r.Context(), d); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, d)
}

type updateDocumentSummaryRequest struct {
	Summary string   `json:"summary" validate:"max=5000"`
	Tags    []string `json:"tags" validate:"max=50,dive,max=100"`
	Version int64    `json:"version" validate:"required,min=1"`
}

// UpdateSummary rewrites the derived summary fields of a processed document
// without touching its ingestion state.
func (h *DocumentHandler) UpdateSummary(w http.ResponseWriter, r *http.Request) {
	var req updateDocumentSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	d, err := h.documents.GetByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	d.Version = req.Version
	d.ContentSummary = req.Summary
	d.Tags = req.Tags

	if err := h.documents.Update(r.Context(), d); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, d)
}

// ListBySession returns a session's documents
func (h *DocumentHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	docs, err := h.documents.ListBySession(r.Context(), sessionID, listOptionsFromQuery(r))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}
