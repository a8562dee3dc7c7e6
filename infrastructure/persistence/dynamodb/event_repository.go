package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

// eventRepository persists the append-only audit trail. Events are never
// updated: the sort key embeds timestamp and event ID, so appends cannot
// collide and re-appending the same event is rejected.
type eventRepository struct {
	store  *Store
	writer *BatchWriter
	logger *zap.Logger
}

// NewEventRepository creates an event repository. The batch writer serves
// AppendBatch and may be nil if batch appends are not needed.
func NewEventRepository(store *Store, writer *BatchWriter, logger *zap.Logger) (ports.EventRepository, error) {
	if store == nil {
		return nil, pkgerrors.NewValidationError("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eventRepository{store: store, writer: writer, logger: logger}, nil
}

func (r *eventRepository) Append(ctx context.Context, e *entities.Event) error {
	if e == nil {
		return pkgerrors.NewValidationError("event cannot be nil")
	}

	item, err := attributevalue.MarshalMap(populateEvent(e, r.store.now()))
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal event").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrPK)).
			And(expression.AttributeNotExists(expression.Name(attrSK)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build append condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError("event " + e.ID + " already appended")
		}
		return err
	}
	return nil
}

func (r *eventRepository) AppendBatch(ctx context.Context, events []*entities.Event) (ports.BatchResult, error) {
	if len(events) == 0 {
		return ports.BatchResult{}, nil
	}
	if r.writer == nil {
		return ports.BatchResult{}, pkgerrors.NewInternalError("event repository has no batch writer")
	}

	now := r.store.now()
	items := make([]map[string]types.AttributeValue, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		item, err := attributevalue.MarshalMap(populateEvent(e, now))
		if err != nil {
			return ports.BatchResult{}, pkgerrors.NewInternalError("failed to marshal event").WithCause(err)
		}
		items = append(items, item)
	}
	return r.writer.BatchPut(ctx, items)
}

func (r *eventRepository) ListByAssessment(ctx context.Context, assessmentID valueobjects.AssessmentID, typePrefix string, opts ports.ListOptions) ([]*entities.Event, error) {
	if assessmentID.IsEmpty() {
		return nil, pkgerrors.NewValidationError("assessment ID cannot be empty")
	}

	items, err := r.store.list(ctx, EventsByAssessment{
		AssessmentID:    assessmentID.String(),
		EventTypePrefix: typePrefix,
	}, opts)
	if err != nil {
		return nil, err
	}

	events := make([]*entities.Event, 0, len(items))
	for _, raw := range items {
		var it eventItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			r.logger.Warn("skipping malformed event record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		e, err := it.toEntity()
		if err != nil {
			r.logger.Warn("skipping malformed event record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		events = append(events, e)
	}

	// the index sorts by event_type; chronological order is what callers want
	sort.Slice(events, func(i, j int) bool {
		if opts.Recency {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}
