package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	pkgerrors "tra-backend/pkg/errors"
)

// messageRepository persists chat messages. Messages are immutable once
// written; there is no update path.
type messageRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewMessageRepository creates a message repository
func NewMessageRepository(store *Store, logger *zap.Logger) (ports.MessageRepository, error) {
	if store == nil {
		return nil, pkgerrors.NewValidationError("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &messageRepository{store: store, logger: logger}, nil
}

func (r *messageRepository) Create(ctx context.Context, m *entities.Message) error {
	if m == nil {
		return pkgerrors.NewValidationError("message cannot be nil")
	}

	item, err := attributevalue.MarshalMap(populateMessage(m, r.store.now()))
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal message").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrPK)).
			And(expression.AttributeNotExists(expression.Name(attrSK)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("failed to build create condition").WithCause(err)
	}

	if err := r.store.putItem(ctx, item, &cond); err != nil {
		if pkgerrors.IsConflict(err) {
			return pkgerrors.NewConflictError("message " + m.ID + " already exists")
		}
		return err
	}
	return nil
}

// ListBySession returns a session's messages in chronological order. The
// index sorts by entity_type, which is constant across messages, so the
// chronological ordering happens here.
func (r *messageRepository) ListBySession(ctx context.Context, sessionID string, opts ports.ListOptions) ([]*entities.Message, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("session ID cannot be empty")
	}

	items, err := r.store.list(ctx, ItemsBySession{
		SessionID:        sessionID,
		EntityTypePrefix: entityTypeMessage,
	}, opts)
	if err != nil {
		return nil, err
	}

	messages := make([]*entities.Message, 0, len(items))
	for _, raw := range items {
		var it messageItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			r.logger.Warn("skipping malformed message record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		m, err := it.toEntity()
		if err != nil {
			r.logger.Warn("skipping malformed message record",
				zap.String("key", itemPrimaryKey(raw)),
				zap.Error(err))
			continue
		}
		messages = append(messages, m)
	}

	sort.Slice(messages, func(i, j int) bool {
		if opts.Recency {
			return messages[i].Timestamp.After(messages[j].Timestamp)
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
