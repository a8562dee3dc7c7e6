package ports

import (
	"context"

	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
)

// ListOptions controls listing behavior shared by the ListBy* methods.
//
// IncludeLegacy turns on the fallback-scan branch for records written before
// the secondary indexes existed; results from both branches are merged and
// deduplicated by primary key. It must stay off for ordinary reads.
type ListOptions struct {
	// Recency requests newest-first ordering where the index supports it
	Recency bool

	// Limit caps the number of returned items; zero means no cap
	Limit int32

	// IncludeLegacy also scans for records lacking index attributes
	IncludeLegacy bool
}

// BatchResult reports the per-item outcome of a bulk write. Partial failure
// is an expected outcome, not an error: the store may throttle part of a
// batch and the unwritable remainder is returned in Failed.
type BatchResult struct {
	Succeeded int
	Failed    []string // primary keys (pk|sk) still unwritten after retries
}

// AssessmentRepository persists assessment records
type AssessmentRepository interface {
	Create(ctx context.Context, a *entities.Assessment) error
	GetByID(ctx context.Context, id valueobjects.AssessmentID) (*entities.Assessment, error)
	// Update performs a full read-modify-write guarded by the entity version;
	// a stale version yields a Conflict error.
	Update(ctx context.Context, a *entities.Assessment) error
	ListByState(ctx context.Context, state entities.AssessmentState, opts ListOptions) ([]*entities.Assessment, error)
	ListRecent(ctx context.Context, opts ListOptions) ([]*entities.Assessment, error)
	SearchByTitlePrefix(ctx context.Context, prefix string, limit int32) ([]*entities.Assessment, error)
}

// DocumentRepository persists document metadata records
type DocumentRepository interface {
	Create(ctx context.Context, d *entities.Document) error
	GetByID(ctx context.Context, id string) (*entities.Document, error)
	Update(ctx context.Context, d *entities.Document) error
	ListBySession(ctx context.Context, sessionID string, opts ListOptions) ([]*entities.Document, error)
	// LinkToAssessment rewrites every document of the session with the given
	// assessment ID using the batch writer; partial failure is returned as data.
	LinkToAssessment(ctx context.Context, sessionID string, assessmentID valueobjects.AssessmentID) (BatchResult, error)
}

// EventRepository persists the append-only audit trail
type EventRepository interface {
	Append(ctx context.Context, e *entities.Event) error
	AppendBatch(ctx context.Context, events []*entities.Event) (BatchResult, error)
	// ListByAssessment returns events for an assessment, optionally narrowed
	// to event types with the given prefix (e.g. "review").
	ListByAssessment(ctx context.Context, assessmentID valueobjects.AssessmentID, typePrefix string, opts ListOptions) ([]*entities.Event, error)
}

// MessageRepository persists chat messages
type MessageRepository interface {
	Create(ctx context.Context, m *entities.Message) error
	ListBySession(ctx context.Context, sessionID string, opts ListOptions) ([]*entities.Message, error)
}

// EventPublisher pushes audit events to the event bus for downstream
// consumers. Publish failures are logged, never fatal to the write path.
type EventPublisher interface {
	Publish(ctx context.Context, e *entities.Event) error
	PublishBatch(ctx context.Context, events []*entities.Event) error
}
