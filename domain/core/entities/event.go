package entities

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "tra-backend/pkg/errors"
)

// EventType discriminates audit-trail events. Review events share the
// "review" prefix so they can be listed with a single prefix condition.
type EventType string

const (
	EventAssessmentCreated EventType = "assessment_created"
	EventQuestionAnswered  EventType = "question_answered"
	EventDocumentUploaded  EventType = "document_uploaded"
	EventDocumentProcessed EventType = "document_processed"
	EventStateChanged      EventType = "state_changed"
	EventReviewStarted     EventType = "review_started"
	EventReviewSaved       EventType = "review_saved"
	EventAuditEntry        EventType = "audit_entry"
)

// ReviewEventPrefix matches every review_* event type
const ReviewEventPrefix = "review"

// Event is an immutable audit-trail record attached to an assessment
type Event struct {
	ID           string                 `json:"event_id"`
	AssessmentID string                 `json:"assessment_id"`
	SessionID    string                 `json:"session_id,omitempty"`
	Type         EventType              `json:"event_type"`
	Description  string                 `json:"description,omitempty"`
	Actor        string                 `json:"actor,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// NewEvent creates an audit event for an assessment
func NewEvent(assessmentID string, eventType EventType, description string) (*Event, error) {
	if assessmentID == "" {
		return nil, pkgerrors.NewValidationError("assessmentID cannot be empty")
	}
	if eventType == "" {
		return nil, pkgerrors.NewValidationError("eventType cannot be empty")
	}

	return &Event{
		ID:           uuid.New().String(),
		AssessmentID: assessmentID,
		Type:         eventType,
		Description:  description,
		Payload:      make(map[string]interface{}),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// WithActor sets the acting principal on the event
func (e *Event) WithActor(actor string) *Event {
	e.Actor = actor
	return e
}

// WithPayload merges event-specific data into the payload
func (e *Event) WithPayload(payload map[string]interface{}) *Event {
	for k, v := range payload {
		e.Payload[k] = v
	}
	return e
}
