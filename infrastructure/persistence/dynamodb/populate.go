package dynamodb

import (
	"strings"
	"time"

	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

// The populator turns entities into table items, attaching every index
// attribute the item's kind participates in. It is deterministic given the
// entity and the clock reading, makes no external calls, and never fails:
// a missing optional field yields an absent attribute, not an error, so a
// write is never rejected for secondary-index reasons.
//
// updated_at is monotonically non-decreasing per entity: if the supplied
// clock reads earlier than the entity's previous write, the previous
// timestamp is kept.

type assessmentItem struct {
	PK                   string                `dynamodbav:"pk"`
	SK                   string                `dynamodbav:"sk"`
	EntityType           string                `dynamodbav:"entity_type"`
	AssessmentID         string                `dynamodbav:"assessment_id"`
	SessionID            string                `dynamodbav:"session_id,omitempty"`
	Title                string                `dynamodbav:"title,omitempty"`
	TitleLowercase       string                `dynamodbav:"title_lowercase,omitempty"`
	Description          string                `dynamodbav:"description,omitempty"`
	TechnologyType       string                `dynamodbav:"technology_type,omitempty"`
	RequestorName        string                `dynamodbav:"requestor_name,omitempty"`
	RequestorEmail       string                `dynamodbav:"requestor_email,omitempty"`
	Answers              map[string]string     `dynamodbav:"answers,omitempty"`
	CompletionPercentage float64               `dynamodbav:"completion_percentage"`
	CurrentState         string                `dynamodbav:"current_state"`
	LinkedDocuments      []documentSummaryItem `dynamodbav:"linked_documents,omitempty"`
	Version              int64                 `dynamodbav:"version"`
	CreatedAt            string                `dynamodbav:"created_at"`
	UpdatedAt            string                `dynamodbav:"updated_at"`
}

type documentSummaryItem struct {
	DocumentID     string   `dynamodbav:"document_id"`
	Filename       string   `dynamodbav:"filename"`
	ContentSummary string   `dynamodbav:"content_summary,omitempty"`
	Tags           []string `dynamodbav:"tags,omitempty"`
	UploadedAt     string   `dynamodbav:"uploaded_at"`
}

type documentItem struct {
	PK             string   `dynamodbav:"pk"`
	SK             string   `dynamodbav:"sk"`
	EntityType     string   `dynamodbav:"entity_type"`
	DocumentID     string   `dynamodbav:"document_id"`
	AssessmentID   string   `dynamodbav:"assessment_id,omitempty"`
	SessionID      string   `dynamodbav:"session_id,omitempty"`
	Status         string   `dynamodbav:"status"`
	Filename       string   `dynamodbav:"filename"`
	FileSize       int64    `dynamodbav:"file_size"`
	ContentType    string   `dynamodbav:"content_type,omitempty"`
	S3Key          string   `dynamodbav:"s3_key,omitempty"`
	ContentSummary string   `dynamodbav:"content_summary,omitempty"`
	Tags           []string `dynamodbav:"tags,omitempty"`
	FailureReason  string   `dynamodbav:"failure_reason,omitempty"`
	Version        int64    `dynamodbav:"version"`
	CreatedAt      string   `dynamodbav:"created_at"`
	UpdatedAt      string   `dynamodbav:"updated_at"`
}

type eventItem struct {
	PK           string                 `dynamodbav:"pk"`
	SK           string                 `dynamodbav:"sk"`
	EntityType   string                 `dynamodbav:"entity_type"`
	EventID      string                 `dynamodbav:"event_id"`
	AssessmentID string                 `dynamodbav:"assessment_id"`
	SessionID    string                 `dynamodbav:"session_id,omitempty"`
	EventType    string                 `dynamodbav:"event_type"`
	Description  string                 `dynamodbav:"description,omitempty"`
	Actor        string                 `dynamodbav:"actor,omitempty"`
	Payload      map[string]interface{} `dynamodbav:"payload,omitempty"`
	Timestamp    string                 `dynamodbav:"timestamp"`
	CreatedAt    string                 `dynamodbav:"created_at"`
	UpdatedAt    string                 `dynamodbav:"updated_at"`
}

type messageItem struct {
	PK           string `dynamodbav:"pk"`
	SK           string `dynamodbav:"sk"`
	EntityType   string `dynamodbav:"entity_type"`
	MessageID    string `dynamodbav:"message_id"`
	SessionID    string `dynamodbav:"session_id"`
	AssessmentID string `dynamodbav:"assessment_id,omitempty"`
	Role         string `dynamodbav:"role"`
	Content      string `dynamodbav:"content"`
	Timestamp    string `dynamodbav:"timestamp"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

// monotonicTime returns now unless the entity's previous write was later
func monotonicTime(now, previous time.Time) time.Time {
	if !previous.IsZero() && now.Before(previous) {
		return previous
	}
	return now.UTC()
}

// populateAssessment builds the stored item for an assessment. Assessments
// are the only kind that carries title_lowercase.
func populateAssessment(a *entities.Assessment, now time.Time) assessmentItem {
	pk, sk := assessmentKey(a.ID.String())
	updatedAt := monotonicTime(now, a.UpdatedAt)

	summaries := make([]documentSummaryItem, 0, len(a.LinkedDocuments))
	for _, d := range a.LinkedDocuments {
		summaries = append(summaries, documentSummaryItem{
			DocumentID:     d.DocumentID,
			Filename:       d.Filename,
			ContentSummary: d.ContentSummary,
			Tags:           d.Tags,
			UploadedAt:     formatTime(d.UploadedAt),
		})
	}

	return assessmentItem{
		PK:                   pk,
		SK:                   sk,
		EntityType:           entityTypeAssessment,
		AssessmentID:         a.ID.String(),
		SessionID:            a.SessionID,
		Title:                a.Title,
		TitleLowercase:       strings.ToLower(a.Title),
		Description:          a.Description,
		TechnologyType:       a.TechnologyType,
		RequestorName:        a.RequestorName,
		RequestorEmail:       a.RequestorEmail,
		Answers:              a.Answers,
		CompletionPercentage: a.CompletionPercentage,
		CurrentState:         string(a.State),
		LinkedDocuments:      summaries,
		Version:              a.Version,
		CreatedAt:            formatTime(a.CreatedAt),
		UpdatedAt:            formatTime(updatedAt),
	}
}

func populateDocument(d *entities.Document, now time.Time) documentItem {
	pk, sk := documentKey(d.ID)
	updatedAt := monotonicTime(now, d.UpdatedAt)

	return documentItem{
		PK:             pk,
		SK:             sk,
		EntityType:     entityTypeDocument,
		DocumentID:     d.ID,
		AssessmentID:   d.AssessmentID,
		SessionID:      d.SessionID,
		Status:         string(d.Status),
		Filename:       d.Filename,
		FileSize:       d.FileSize,
		ContentType:    d.ContentType,
		S3Key:          d.S3Key,
		ContentSummary: d.ContentSummary,
		Tags:           d.Tags,
		FailureReason:  d.FailureReason,
		Version:        d.Version,
		CreatedAt:      formatTime(d.CreatedAt),
		UpdatedAt:      formatTime(updatedAt),
	}
}

func populateEvent(e *entities.Event, now time.Time) eventItem {
	pk, sk := eventKey(e.AssessmentID, e.Timestamp, e.ID)
	ts := formatTime(e.Timestamp)

	return eventItem{
		PK:           pk,
		SK:           sk,
		EntityType:   entityTypeEvent,
		EventID:      e.ID,
		AssessmentID: e.AssessmentID,
		SessionID:    e.SessionID,
		EventType:    string(e.Type),
		Description:  e.Description,
		Actor:        e.Actor,
		Payload:      e.Payload,
		Timestamp:    ts,
		CreatedAt:    ts,
		UpdatedAt:    formatTime(monotonicTime(now, e.Timestamp)),
	}
}

func populateMessage(m *entities.Message, now time.Time) messageItem {
	pk, sk := messageKey(m.SessionID, m.Timestamp, m.ID)
	ts := formatTime(m.Timestamp)

	return messageItem{
		PK:           pk,
		SK:           sk,
		EntityType:   entityTypeMessage,
		MessageID:    m.ID,
		SessionID:    m.SessionID,
		AssessmentID: m.AssessmentID,
		Role:         string(m.Role),
		Content:      m.Content,
		Timestamp:    ts,
		CreatedAt:    ts,
		UpdatedAt:    formatTime(monotonicTime(now, m.Timestamp)),
	}
}

func (it assessmentItem) toEntity() (*entities.Assessment, error) {
	id, err := valueobjects.ParseAssessmentID(it.AssessmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored assessment has malformed id")
	}
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored assessment has malformed created_at").WithCause(err)
	}
	updatedAt, err := parseTime(it.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored assessment has malformed updated_at").WithCause(err)
	}

	docs := make([]entities.DocumentSummary, 0, len(it.LinkedDocuments))
	for _, d := range it.LinkedDocuments {
		uploadedAt, _ := parseTime(d.UploadedAt)
		docs = append(docs, entities.DocumentSummary{
			DocumentID:     d.DocumentID,
			Filename:       d.Filename,
			ContentSummary: d.ContentSummary,
			Tags:           d.Tags,
			UploadedAt:     uploadedAt,
		})
	}

	return &entities.Assessment{
		ID:                   id,
		SessionID:            it.SessionID,
		Title:                it.Title,
		Description:          it.Description,
		TechnologyType:       it.TechnologyType,
		RequestorName:        it.RequestorName,
		RequestorEmail:       it.RequestorEmail,
		Answers:              it.Answers,
		CompletionPercentage: it.CompletionPercentage,
		State:                entities.AssessmentState(it.CurrentState),
		LinkedDocuments:      docs,
		Version:              it.Version,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}, nil
}

func (it documentItem) toEntity() (*entities.Document, error) {
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored document has malformed created_at").WithCause(err)
	}
	updatedAt, err := parseTime(it.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored document has malformed updated_at").WithCause(err)
	}

	return &entities.Document{
		ID:             it.DocumentID,
		AssessmentID:   it.AssessmentID,
		SessionID:      it.SessionID,
		Status:         entities.DocumentStatus(it.Status),
		Filename:       it.Filename,
		FileSize:       it.FileSize,
		ContentType:    it.ContentType,
		S3Key:          it.S3Key,
		ContentSummary: it.ContentSummary,
		Tags:           it.Tags,
		FailureReason:  it.FailureReason,
		Version:        it.Version,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func (it eventItem) toEntity() (*entities.Event, error) {
	ts, err := parseTime(it.Timestamp)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored event has malformed timestamp").WithCause(err)
	}

	return &entities.Event{
		ID:           it.EventID,
		AssessmentID: it.AssessmentID,
		SessionID:    it.SessionID,
		Type:         entities.EventType(it.EventType),
		Description:  it.Description,
		Actor:        it.Actor,
		Payload:      it.Payload,
		Timestamp:    ts,
	}, nil
}

func (it messageItem) toEntity() (*entities.Message, error) {
	ts, err := parseTime(it.Timestamp)
	if err != nil {
		return nil, pkgerrors.NewInternalError("stored message has malformed timestamp").WithCause(err)
	}

	return &entities.Message{
		ID:           it.MessageID,
		SessionID:    it.SessionID,
		AssessmentID: it.AssessmentID,
		Role:         entities.MessageRole(it.Role),
		Content:      it.Content,
		Timestamp:    ts,
	}, nil
}
