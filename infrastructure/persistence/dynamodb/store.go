package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	pkgerrors "tra-backend/pkg/errors"
)

// StorageBackend is the slice of the DynamoDB API the store depends on.
// Tests substitute a fake; production wires the SDK client.
type StorageBackend interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store executes resolved query plans against the single table. It owns
// error classification and the legacy fallback merge; entity mapping lives
// in the repositories above it.
type Store struct {
	db        StorageBackend
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewStore creates a store over the given backend
func NewStore(db StorageBackend, tableName string, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, pkgerrors.NewValidationError("storage backend cannot be nil")
	}
	if tableName == "" {
		return nil, pkgerrors.NewValidationError("table name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:        db,
		tableName: tableName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// classifyWriteError maps SDK failures onto the application error taxonomy
func classifyWriteError(operation string, err error) error {
	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return pkgerrors.NewConflictError("conditional write failed for " + operation).WithCause(err)
	}
	var throttled *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return pkgerrors.NewThrottledError(operation, err)
	}
	return pkgerrors.NewDatabaseError(operation, err)
}

// putItem writes a single item, optionally guarded by a condition expression
func (s *Store) putItem(ctx context.Context, item map[string]types.AttributeValue, condition *expression.Expression) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if condition != nil {
		input.ConditionExpression = condition.Condition()
		input.ExpressionAttributeNames = condition.Names()
		input.ExpressionAttributeValues = condition.Values()
	}

	if _, err := s.db.PutItem(ctx, input); err != nil {
		return classifyWriteError("put_item", err)
	}
	return nil
}

// getItem reads an item by primary key with a strongly consistent read.
// A missing item returns (nil, nil); callers decide whether that is an error.
func (s *Store) getItem(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: pk},
			attrSK: &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_item", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return out.Item, nil
}

// query runs an index query plan, following pagination until exhausted or
// the limit is reached.
func (s *Store) query(ctx context.Context, p *queryPlan, opts ports.ListOptions) ([]map[string]types.AttributeValue, error) {
	keyCond := expression.Key(p.partitionAttr).Equal(expression.Value(p.partitionValue))
	if p.sort != nil {
		if p.sort.beginsWith {
			keyCond = keyCond.And(expression.Key(p.sort.attribute).BeginsWith(p.sort.value))
		} else {
			keyCond = keyCond.And(expression.Key(p.sort.attribute).Equal(expression.Value(p.sort.value)))
		}
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(p.index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if opts.Recency {
		input.ScanIndexForward = aws.Bool(false)
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(opts.Limit)
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query", err)
		}
		items = append(items, out.Items...)

		if opts.Limit > 0 && int32(len(items)) >= opts.Limit {
			return items[:opts.Limit], nil
		}
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// scan runs a filtered full-table scan. This is the degraded path for
// records predating the indexes; every invocation is logged.
func (s *Store) scan(ctx context.Context, filter expression.ConditionBuilder) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build scan expression").WithCause(err)
	}

	s.logger.Warn("running fallback table scan for legacy records",
		zap.String("table", s.tableName))

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := s.db.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// list executes a shape: the index query first, then, when legacy records
// are requested, the equivalent fallback scan merged in with primary-key
// deduplication so a record present in both branches is returned once.
func (s *Store) list(ctx context.Context, shape QueryShape, opts ports.ListOptions) ([]map[string]types.AttributeValue, error) {
	p, err := resolve(shape)
	if err != nil {
		return nil, err
	}
	if p.get != nil {
		item, err := s.getItem(ctx, p.get.pk, p.get.sk)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, nil
		}
		return []map[string]types.AttributeValue{item}, nil
	}

	items, err := s.query(ctx, p.query, opts)
	if err != nil {
		return nil, err
	}
	if !opts.IncludeLegacy {
		return items, nil
	}

	filter, ok := resolveFallback(shape)
	if !ok {
		return items, nil
	}
	scanned, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[itemPrimaryKey(it)] = struct{}{}
	}
	for _, it := range scanned {
		key := itemPrimaryKey(it)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, it)
	}
	return items, nil
}

// itemPrimaryKey extracts the pk|sk dedup key from a raw item
func itemPrimaryKey(item map[string]types.AttributeValue) string {
	var pk, sk string
	if v, ok := item[attrPK].(*types.AttributeValueMemberS); ok {
		pk = v.Value
	}
	if v, ok := item[attrSK].(*types.AttributeValueMemberS); ok {
		sk = v.Value
	}
	return primaryKey(pk, sk)
}
