package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	"tra-backend/pkg/common"
	pkgerrors "tra-backend/pkg/errors"
)

// AssessmentHandler serves the assessment lifecycle endpoints
type AssessmentHandler struct {
	assessments ports.AssessmentRepository
	documents   ports.DocumentRepository
	events      ports.EventRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssessmentHandler creates the assessment handler
func NewAssessmentHandler(assessments ports.AssessmentRepository, documents ports.DocumentRepository, events ports.EventRepository, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessments: assessments,
		documents:   documents,
		events:      events,
		validator:   validator.New(),
		logger:      logger,
	}
}

// RegisterRoutes mounts the assessment routes on the router
func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Route("/{assessmentID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Post("/transition", h.Transition)
			r.Post("/answers", h.RecordAnswer)
			r.Post("/link-documents", h.LinkDocuments)
			r.Get("/documents", h.ListDocuments)
			r.Get("/events", h.ListEvents)
		})
	})
}

type createAssessmentRequest struct {
	SessionID      string `json:"session_id" validate:"required"`
	Title          string `json:"title" validate:"max=500"`
	Description    string `json:"description" validate:"max=5000"`
	TechnologyType string `json:"technology_type" validate:"max=200"`
	RequestorName  string `json:"requestor_name" validate:"max=200"`
	RequestorEmail string `json:"requestor_email" validate:"omitempty,email"`
}

// Create creates a draft assessment
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	a, err := entities.NewAssessment(req.SessionID, req.Title)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	a.Description = req.Description
	a.TechnologyType = req.TechnologyType
	a.RequestorName = req.RequestorName
	a.RequestorEmail = req.RequestorEmail

	if err := h.assessments.Create(r.Context(), a); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, a)
}

// Get returns one assessment by TRA ID
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	a, err := h.assessments.GetByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, a)
}

type updateAssessmentRequest struct {
	Title          *string `json:"title" validate:"omitempty,max=500"`
	Description    *string `json:"description" validate:"omitempty,max=5000"`
	TechnologyType *string `json:"technology_type" validate:"omitempty,max=200"`
	RequestorName  *string `json:"requestor_name" validate:"omitempty,max=200"`
	RequestorEmail *string `json:"requestor_email" validate:"omitempty,email"`
	Version        int64   `json:"version" validate:"required,min=1"`
}

// Update applies metadata changes guarded by the client-held version
func (h *AssessmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	var req updateAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	a, err := h.assessments.GetByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	if a.State == entities.StateArchived {
		common.RespondError(w, pkgerrors.NewConflictError("assessment is archived and immutable"))
		return
	}

	a.Version = req.Version
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.TechnologyType != nil {
		a.TechnologyType = *req.TechnologyType
	}
	if req.RequestorName != nil {
		a.RequestorName = *req.RequestorName
	}
	if req.RequestorEmail != nil {
		a.RequestorEmail = *req.RequestorEmail
	}

	if err := h.assessments.Update(r.Context(), a); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, a)
}

type transitionRequest struct {
	Action  string `json:"action" validate:"required,oneof=start complete archive"`
	Version int64  `json:"version" validate:"required,min=1"`
}

// Transition moves an assessment through its lifecycle
func (h *AssessmentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	a, err := h.assessments.GetByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	a.Version = req.Version

	switch req.Action {
	case "start":
		err = a.Start()
	case "complete":
		err = a.Complete()
	case "archive":
		err = a.Archive()
	}
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.assessments.Update(r.Context(), a); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, a)
}

type recordAnswerRequest struct {
	QuestionID     string `json:"question_id" validate:"required"`
	Answer         string `json:"answer"`
	TotalQuestions int    `json:"total_questions" validate:"min=0"`
	Version        int64  `json:"version" validate:"required,min=1"`
}

// RecordAnswer stores a questionnaire answer on the assessment
func (h *AssessmentHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	var req recordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	a, err := h.assessments.GetByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	a.Version = req.Version
	if err := a.RecordAnswer(req.QuestionID, req.Answer, req.TotalQuestions); err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.assessments.Update(r.Context(), a); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, a)
}

// List returns assessments by state, or the most recent across all states
func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)

	var (
		results []*entities.Assessment
		err     error
	)
	if state := r.URL.Query().Get("state"); state != "" {
		results, err = h.assessments.ListByState(r.Context(), entities.AssessmentState(state), opts)
	} else {
		opts.Recency = true
		results, err = h.assessments.ListRecent(r.Context(), opts)
	}
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": results,
		"count":       len(results),
	})
}

// Search returns assessments whose title starts with the query string
func (h *AssessmentHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := int32(queryInt(r, "limit", 20))

	results, err := h.assessments.SearchByTitlePrefix(r.Context(), query, limit)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": results,
		"count":       len(results),
	})
}

type linkDocumentsRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// LinkDocuments stamps every document of a session with this assessment
func (h *AssessmentHandler) LinkDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	var req linkDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.documents.LinkToAssessment(r.Context(), req.SessionID, id)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	common.RespondJSON(w, status, map[string]interface{}{
		"linked": result.Succeeded,
		"failed": result.Failed,
	})
}

// ListDocuments returns the documents linked to an assessment, from the
// summaries the link operation maintains on the assessment record.
func (h *AssessmentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	a, err := h.assessments.GetByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": a.LinkedDocuments,
		"count":     len(a.LinkedDocuments),
	})
}

// ListEvents returns the audit trail of an assessment, optionally narrowed
// by event type prefix (e.g. ?type=review).
func (h *AssessmentHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}

	events, err := h.events.ListByAssessment(r.Context(), id, r.URL.Query().Get("type"), listOptionsFromQuery(r))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func listOptionsFromQuery(r *http.Request) ports.ListOptions {
	return ports.ListOptions{
		Recency:       r.URL.Query().Get("order") == "recent",
		Limit:         int32(queryInt(r, "limit", 0)),
		IncludeLegacy: r.URL.Query().Get("include_legacy") == "true",
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}
