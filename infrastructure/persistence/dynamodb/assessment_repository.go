package dynamodb

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

// assessmentRepository persists assessments with optimistic locking: every
// update is conditioned on the stored version matching the entity's, and a
// successful write bumps both.
type assessmentRepository struct {
	store   *Store
	auditor *auditor
	logger  *zap.Logger
}

// NewAssessmentRepository creates an assessment repository. The event
// repository and publisher feed the audit trail; either may be nil, in
// which case auditing is skipped.
func NewAssessmentRepository(store *Store, events ports.EventRepository, publisher ports.EventPublisher, logger *zap.Logger) (ports.AssessmentRepository, error) {
	if store == nil {
		return nil, pkgerrors.NewValidationError("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &assessmentRepository{
		store:   store,
		auditor: newAuditor(events, publisher, logger),
		logger:  logger,
	}, nil
}

func (r *assessmentRepository) Create(ctx context.Context, a *entities.Assessment) error {
	if a == nil {
		return pkgerrors.NewValidationError("assessment cannot be nil")
	}
	if a.ID.IsEmpty() {
		return pkgerrors.NewValidationError("assessment ID cannot be empty")
	}
	if !a.State.Valid() {
		return pkgerrors.NewValidationError("assessment state is not a known lifecycle state")
	}

	now := r.store.now()
	record := populateAssessment(a, now)
	record.Version = 1
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal assessment").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrPK))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build create condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError("assessment " + a.ID.String() + " already exists")
		}
		return err
	}
	a.Version = 1
	a.UpdatedAt, _ = parseTime(record.UpdatedAt)

	r.auditor.record(ctx, a.ID.String(), a.SessionID, entities.EventAssessmentCreated,
		"assessment created", map[string]interface{}{"title": a.Title})
	return nil
}

func (r *assessmentRepository) GetByID(ctx context.Context, id valueobjects.AssessmentID) (*entities.Assessment, error) {
	if id.IsEmpty() {
		return nil, pkgerrors.NewValidationError("assessment ID cannot be empty")
	}

	pk, sk := assessmentKey(id.String())
	raw, err := r.store.getItem(ctx, pk, sk)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, pkgerrors.NewNotFoundError("assessment " + id.String())
	}
	return unmarshalAssessment(raw)
}

func (r *assessmentRepository) Update(ctx context.Context, a *entities.Assessment) error {
	if a == nil {
		return pkgerrors.NewValidationError("assessment cannot be nil")
	}
	if a.Version < 1 {
		return pkgerrors.NewValidationError("assessment has no stored version to update")
	}

	now := r.store.now()
	record := populateAssessment(a, now)
	record.Version = a.Version + 1
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal assessment").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name(attrVersion).Equal(expression.Value(a.Version)).
			And(expression.AttributeExists(expression.Name(attrPK)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build update condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError(
				"assessment " + a.ID.String() + " was modified concurrently")
		}
		return err
	}
	a.Version = record.Version
	a.UpdatedAt, _ = parseTime(record.UpdatedAt)
	return nil
}

func (r *assessmentRepository) ListByState(ctx context.Context, state entities.AssessmentState, opts ports.ListOptions) ([]*entities.Assessment, error) {
	if !state.Valid() {
		return nil, pkgerrors.NewValidationError("unknown lifecycle state " + string(state))
	}

	items, err := r.store.list(ctx, AssessmentsByState{State: string(state)}, opts)
	if err != nil {
		return nil, err
	}
	return r.orderedAssessments(items, opts), nil
}

func (r *assessmentRepository) ListRecent(ctx context.Context, opts ports.ListOptions) ([]*entities.Assessment, error) {
	items, err := r.store.list(ctx, ItemsByType{EntityType: entityTypeAssessment}, opts)
	if err != nil {
		return nil, err
	}
	return r.orderedAssessments(items, opts), nil
}

// orderedAssessments converts raw items and restores recency ordering: the
// legacy-scan branch of a merged listing arrives unordered, so the index's
// newest-first order must be re-established over the whole result.
func (r *assessmentRepository) orderedAssessments(items []map[string]types.AttributeValue, opts ports.ListOptions) []*entities.Assessment {
	results := r.toAssessments(items)
	if opts.Recency {
		sort.Slice(results, func(i, j int) bool {
			return results[i].UpdatedAt.After(results[j].UpdatedAt)
		})
	}
	return results
}

// SearchByTitlePrefix matches lowercase titles against the prefix and
// returns the most recently updated matches first. The index orders by
// title, so recency ordering happens here after the fetch.
func (r *assessmentRepository) SearchByTitlePrefix(ctx context.Context, prefix string, limit int32) ([]*entities.Assessment, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, pkgerrors.NewValidationError("search prefix cannot be empty")
	}

	items, err := r.store.list(ctx, AssessmentsByTitlePrefix{Prefix: prefix}, ports.ListOptions{IncludeLegacy: true})
	if err != nil {
		return nil, err
	}

	results := r.toAssessments(items)
	matched := results[:0]
	for _, a := range results {
		if strings.HasPrefix(strings.ToLower(a.Title), prefix) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if limit > 0 && int32(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// toAssessments converts raw items, skipping any it cannot parse so one
// corrupt record never breaks a listing.
func (r *assessmentRepository) toAssessments(items []map[string]types.AttributeValue) []*entities.Assessment {
	out := make([]*entities.Assessment, 0, len(items))
	for _, raw := range items {
		a, err := unmarshalAssessment(raw)
		if err != nil {
			r.logger.Warn("skipping malformed assessment record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out
}

func unmarshalAssessment(raw map[string]types.AttributeValue) (*entities.Assessment, error) {
	var it assessmentItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal assessment").WithCause(err)
	}
	return it.toEntity()
}
