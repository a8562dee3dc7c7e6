package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

// documentRepository persists document metadata with the same optimistic
// locking discipline as assessments.
type documentRepository struct {
	store   *Store
	writer  *BatchWriter
	auditor *auditor
	logger  *zap.Logger
}

// NewDocumentRepository creates a document repository. The batch writer
// serves LinkToAssessment.
func NewDocumentRepository(store *Store, writer *BatchWriter, events ports.EventRepository, publisher ports.EventPublisher, logger *zap.Logger) (ports.DocumentRepository, error) {
	if store == nil {
		return nil, pkgerrors.NewValidationError("store cannot be nil")
	}
	if writer == nil {
		return nil, pkgerrors.NewValidationError("batch writer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentRepository{
		store:   store,
		writer:  writer,
		auditor: newAuditor(events, publisher, logger),
		logger:  logger,
	}, nil
}

func (r *documentRepository) Create(ctx context.Context, d *entities.Document) error {
	if d == nil {
		return pkgerrors.NewValidationError("document cannot be nil")
	}
	if d.ID == "" {
		return pkgerrors.NewValidationError("document ID cannot be empty")
	}

	record := populateDocument(d, r.store.now())
	record.Version = 1
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal document").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrPK))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build create condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError("document " + d.ID + " already exists")
		}
		return err
	}
	d.Version = 1
	d.UpdatedAt, _ = parseTime(record.UpdatedAt)

	r.auditor.record(ctx, d.AssessmentID, d.SessionID, entities.EventDocumentUploaded,
		"document uploaded", map[string]interface{}{"document_id": d.ID, "filename": d.Filename})
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*entities.Document, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("document ID cannot be empty")
	}

	pk, sk := documentKey(id)
	raw, err := r.store.getItem(ctx, pk, sk)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, pkgerrors.NewNotFoundError("document " + id)
	}
	return unmarshalDocument(raw)
}

func (r *documentRepository) Update(ctx context.Context, d *entities.Document) error {
	if d == nil {
		return pkgerrors.NewValidationError("document cannot be nil")
	}
	if d.Version < 1 {
		return pkgerrors.NewValidationError("document has no stored version to update")
	}

	record := populateDocument(d, r.store.now())
	record.Version = d.Version + 1
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal document").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name(attrVersion).Equal(expression.Value(d.Version)).
			And(expression.AttributeExists(expression.Name(attrPK)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build update condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError("document " + d.ID + " was modified concurrently")
		}
		return err
	}
	d.Version = record.Version
	d.UpdatedAt, _ = parseTime(record.UpdatedAt)

	if d.Status == entities.DocumentReady {
		r.auditor.record(ctx, d.AssessmentID, d.SessionID, entities.EventDocumentProcessed,
			"document processed", map[string]interface{}{"document_id": d.ID})
	}
	return nil
}

func (r *documentRepository) ListBySession(ctx context.Context, sessionID string, opts ports.ListOptions) ([]*entities.Document, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("session ID cannot be empty")
	}

	items, err := r.store.list(ctx, ItemsBySession{
		SessionID:        sessionID,
		EntityTypePrefix: entityTypeDocument,
	}, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]*entities.Document, 0, len(items))
	for _, raw := range items {
		d, err := unmarshalDocument(raw)
		if err != nil {
			r.logger.Warn("skipping malformed document record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// LinkToAssessment stamps every document of the session with the assessment
// ID in one batch rewrite, then refreshes the assessment's linked_documents
// summaries to match. Documents that fail to write after retries come back
// in the result and are left off the assessment; the caller decides whether
// to retry the link.
func (r *documentRepository) LinkToAssessment(ctx context.Context, sessionID string, assessmentID valueobjects.AssessmentID) (ports.BatchResult, error) {
	if sessionID == "" {
		return ports.BatchResult{}, pkgerrors.NewValidationError("session ID cannot be empty")
	}
	if assessmentID.IsEmpty() {
		return ports.BatchResult{}, pkgerrors.NewValidationError("assessment ID cannot be empty")
	}

	docs, err := r.ListBySession(ctx, sessionID, ports.ListOptions{IncludeLegacy: true})
	if err != nil {
		return ports.BatchResult{}, err
	}
	if len(docs) == 0 {
		return ports.BatchResult{}, nil
	}

	now := r.store.now()
	items := make([]map[string]types.AttributeValue, 0, len(docs))
	for _, d := range docs {
		d.AssessmentID = assessmentID.String()
		record := populateDocument(d, now)
		record.Version = d.Version + 1
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return ports.BatchResult{}, pkgerrors.NewInternalError("failed to marshal document").WithCause(err)
		}
		items = append(items, item)
	}

	result, err := r.writer.BatchPut(ctx, items)
	if err != nil {
		return result, err
	}

	if result.Succeeded > 0 {
		if err := r.refreshAssessmentLinks(ctx, assessmentID, docs, result.Failed); err != nil {
			return result, err
		}
	}

	r.auditor.record(ctx, assessmentID.String(), sessionID, entities.EventAuditEntry,
		"session documents linked to assessment",
		map[string]interface{}{"linked": result.Succeeded, "failed": len(result.Failed)})
	return result, nil
}

// refreshAssessmentLinks attaches the linked documents' summaries to the
// assessment record. The rewrite is version-checked and re-read on conflict,
// so a concurrent assessment update never loses its changes or ours.
func (r *documentRepository) refreshAssessmentLinks(ctx context.Context, assessmentID valueobjects.AssessmentID, docs []*entities.Document, failedKeys []string) error {
	failed := make(map[string]struct{}, len(failedKeys))
	for _, k := range failedKeys {
		failed[k] = struct{}{}
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pk, sk := assessmentKey(assessmentID.String())
		raw, err := r.store.getItem(ctx, pk, sk)
		if err != nil {
			return err
		}
		if raw == nil {
			return pkgerrors.NewNotFoundError("assessment " + assessmentID.String())
		}
		a, err := unmarshalAssessment(raw)
		if err != nil {
			return err
		}

		for _, d := range docs {
			dpk, dsk := documentKey(d.ID)
			if _, unwritten := failed[primaryKey(dpk, dsk)]; unwritten {
				continue
			}
			a.LinkDocument(d.Summary())
		}

		record := populateAssessment(a, r.store.now())
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

		err = r.store.putItem(ctx, item, &cond)
		if err == nil {
			return nil
		}
		if !pkgerrors.IsConflict(err) {
			return err
		}
		r.logger.Warn("assessment changed during document linking, retrying",
			zap.String("assessment_id", assessmentID.String()),
			zap.Int("attempt", attempt+1))
	}
	return pkgerrors.NewConflictError("assessment " + assessmentID.String() + " was modified concurrently")
}

func unmarshalDocument(raw map[string]types.AttributeValue) (*entities.Document, error) {
	var it documentItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal document").WithCause(err)
	}
	return it.toEntity()
}
