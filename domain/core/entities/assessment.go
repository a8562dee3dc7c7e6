package entities

import (
	"fmt"
	"time"

	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

// AssessmentState represents the lifecycle state of an assessment
type AssessmentState string

const (
	StateDraft      AssessmentState = "draft"
	StateInProgress AssessmentState = "in_progress"
	StateComplete   AssessmentState = "complete"
	StateArchived   AssessmentState = "archived"
)

// Valid reports whether s is a known lifecycle state
func (s AssessmentState) Valid() bool {
	switch s {
	case StateDraft, StateInProgress, StateComplete, StateArchived:
		return true
	}
	return false
}

// DocumentSummary is the denormalized view of a linked document carried on
// the assessment record
type DocumentSummary struct {
	DocumentID     string    `json:"document_id"`
	Filename       string    `json:"filename"`
	ContentSummary string    `json:"content_summary,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Assessment is a technology risk assessment record. State transitions go
// through Start/Complete/Archive; archived assessments are immutable.
type Assessment struct {
	ID                   valueobjects.AssessmentID `json:"assessment_id"`
	SessionID            string                    `json:"session_id"`
	Title                string                    `json:"title,omitempty"`
	Description          string                    `json:"description,omitempty"`
	TechnologyType       string                    `json:"technology_type,omitempty"`
	RequestorName        string                    `json:"requestor_name,omitempty"`
	RequestorEmail       string                    `json:"requestor_email,omitempty"`
	Answers              map[string]string         `json:"answers,omitempty"`
	CompletionPercentage float64                   `json:"completion_percentage"`
	State                AssessmentState           `json:"current_state"`
	LinkedDocuments      []DocumentSummary         `json:"linked_documents,omitempty"`
	Version              int64                     `json:"version"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// NewAssessment creates a draft assessment owned by the given session
func NewAssessment(sessionID, title string) (*Assessment, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("sessionID cannot be empty")
	}

	now := time.Now().UTC()
	return &Assessment{
		ID:        valueobjects.NewAssessmentID(),
		SessionID: sessionID,
		Title:     title,
		Answers:   make(map[string]string),
		State:     StateDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Start moves a draft assessment into in_progress
func (a *Assessment) Start() error {
	return a.transition(StateDraft, StateInProgress)
}

// Complete moves an in_progress assessment into complete
func (a *Assessment) Complete() error {
	if err := a.transition(StateInProgress, StateComplete); err != nil {
		return err
	}
	a.CompletionPercentage = 100
	return nil
}

// Archive moves a complete assessment into archived. Archived is terminal.
func (a *Assessment) Archive() error {
	return a.transition(StateComplete, StateArchived)
}

func (a *Assessment) transition(from, to AssessmentState) error {
	if a.State == StateArchived {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("assessment %s is archived and immutable", a.ID))
	}
	if a.State != from {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("assessment %s cannot move from %s to %s", a.ID, a.State, to))
	}
	a.State = to
	return nil
}

// RecordAnswer stores an answer and refreshes the completion percentage
func (a *Assessment) RecordAnswer(questionID, answer string, totalQuestions int) error {
	if a.State == StateArchived {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("assessment %s is archived and immutable", a.ID))
	}
	if questionID == "" {
		return pkgerrors.NewValidationError("questionID cannot be empty")
	}
	if a.Answers == nil {
		a.Answers = make(map[string]string)
	}
	a.Answers[questionID] = answer
	if totalQuestions > 0 {
		a.CompletionPercentage = float64(len(a.Answers)) / float64(totalQuestions) * 100
	}
	return nil
}

// LinkDocument attaches or refreshes a document summary on the assessment
func (a *Assessment) LinkDocument(summary DocumentSummary) {
	for i, existing := range a.LinkedDocuments {
		if existing.DocumentID == summary.DocumentID {
			a.LinkedDocuments[i] = summary
			return
		}
	}
	a.LinkedDocuments = append(a.LinkedDocuments, summary)
}
