package dynamodb

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// fakeDynamo implements StorageBackend with canned outputs and captured
// inputs. Query, Scan and BatchWriteItem consume their output queues in
// call order; an exhausted queue yields an empty result.
type fakeDynamo struct {
	mu sync.Mutex

	putInputs []*dynamodb.PutItemInput
	putErr    error

	getInputs []*dynamodb.GetItemInput
	getOutput *dynamodb.GetItemOutput
	getErr    error

	queryInputs  []*dynamodb.QueryInput
	queryOutputs []*dynamodb.QueryOutput
	queryErr     error

	scanInputs  []*dynamodb.ScanInput
	scanOutputs []*dynamodb.ScanOutput
	scanErr     error

	batchInputs  []*dynamodb.BatchWriteItemInput
	batchOutputs []*dynamodb.BatchWriteItemOutput
	batchErr     error
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putInputs = append(f.putInputs, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getInputs = append(f.getInputs, params)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOutput != nil {
		return f.getOutput, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryInputs = append(f.queryInputs, params)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryOutputs) > 0 {
		out := f.queryOutputs[0]
		f.queryOutputs = f.queryOutputs[1:]
		return out, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanInputs = append(f.scanInputs, params)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	if len(f.scanOutputs) > 0 {
		out := f.scanOutputs[0]
		f.scanOutputs = f.scanOutputs[1:]
		return out, nil
	}
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchInputs = append(f.batchInputs, params)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if len(f.batchOutputs) > 0 {
		out := f.batchOutputs[0]
		f.batchOutputs = f.batchOutputs[1:]
		return out, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func newTestStore(f *fakeDynamo) *Store {
	s, err := NewStore(f, "test-table", zap.NewNop())
	if err != nil {
		panic(err)
	}
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func stringAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func mustMarshal(v interface{}) map[string]types.AttributeValue {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		panic(err)
	}
	return item
}
