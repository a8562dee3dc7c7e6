package dynamodb

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	pkgerrors "tra-backend/pkg/errors"
)

const (
	// maxBatchSize is the store's hard cap on items per batch write request
	maxBatchSize = 25

	defaultBatchConcurrency = 4
	defaultBatchMaxRetries  = 3
	defaultBatchBackoff     = 50 * time.Millisecond
)

// BatchWriter writes item sets in store-sized chunks with bounded
// concurrency. Items the store reports as unprocessed are retried with
// exponential backoff; whatever survives the retry budget is reported in
// BatchResult.Failed rather than as an error, so one throttled chunk never
// hides the writes that did land.
type BatchWriter struct {
	db          StorageBackend
	tableName   string
	logger      *zap.Logger
	concurrency int
	maxRetries  int
	baseBackoff time.Duration
}

// NewBatchWriter creates a batch writer over the given backend.
// Non-positive tuning values fall back to defaults.
func NewBatchWriter(db StorageBackend, tableName string, logger *zap.Logger, concurrency, maxRetries int) (*BatchWriter, error) {
	if db == nil {
		return nil, pkgerrors.NewValidationError("storage backend cannot be nil")
	}
	if tableName == "" {
		return nil, pkgerrors.NewValidationError("table name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if maxRetries <= 0 {
		maxRetries = defaultBatchMaxRetries
	}
	return &BatchWriter{
		db:          db,
		tableName:   tableName,
		logger:      logger,
		concurrency: concurrency,
		maxRetries:  maxRetries,
		baseBackoff: defaultBatchBackoff,
	}, nil
}

// BatchPut writes all items, chunked and retried. The returned error is
// non-nil only for total failure (context cancelled, invalid input); partial
// failure comes back as data in the result.
func (w *BatchWriter) BatchPut(ctx context.Context, items []map[string]types.AttributeValue) (ports.BatchResult, error) {
	if len(items) == 0 {
		return ports.BatchResult{}, nil
	}

	chunks := chunkItems(items, maxBatchSize)

	var (
		mu     sync.Mutex
		result ports.BatchResult
		wg     sync.WaitGroup
		sem    = make(chan struct{}, w.concurrency)
	)

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			mu.Lock()
			for _, it := range chunk {
				result.Failed = append(result.Failed, itemPrimaryKey(it))
			}
			mu.Unlock()
			continue
		}
		sem <- struct{}{}

		wg.Add(1)
		go func(chunk []map[string]types.AttributeValue) {
			defer wg.Done()
			defer func() { <-sem }()

			succeeded, failed := w.writeChunk(ctx, chunk)
			mu.Lock()
			result.Succeeded += succeeded
			result.Failed = append(result.Failed, failed...)
			mu.Unlock()
		}(chunk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && result.Succeeded == 0 {
		return result, pkgerrors.NewDatabaseError("batch_write", err)
	}
	if len(result.Failed) > 0 {
		w.logger.Warn("batch write completed with unwritten items",
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// writeChunk writes one chunk, retrying unprocessed items until the retry
// budget or the context runs out.
func (w *BatchWriter) writeChunk(ctx context.Context, chunk []map[string]types.AttributeValue) (succeeded int, failed []string) {
	pending := make([]types.WriteRequest, 0, len(chunk))
	for _, it := range chunk {
		pending = append(pending, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: it},
		})
	}

	for attempt := 0; attempt <= w.maxRetries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			backoff := w.baseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return succeeded, failedKeys(pending)
			case <-time.After(backoff):
			}
		}

		out, err := w.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				w.tableName: pending,
			},
		})
		if err != nil {
			w.logger.Error("batch write request failed",
				zap.Int("attempt", attempt),
				zap.Int("items", len(pending)),
				zap.Error(err))
			return succeeded, failedKeys(pending)
		}

		unprocessed := out.UnprocessedItems[w.tableName]
		succeeded += len(pending) - len(unprocessed)
		pending = unprocessed
	}

	if len(pending) > 0 {
		w.logger.Warn("items still unprocessed after retries",
			zap.Int("count", len(pending)),
			zap.Int("max_retries", w.maxRetries))
	}
	return succeeded, failedKeys(pending)
}

func chunkItems(items []map[string]types.AttributeValue, size int) [][]map[string]types.AttributeValue {
	var chunks [][]map[string]types.AttributeValue
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func failedKeys(reqs []types.WriteRequest) []string {
	if len(reqs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.PutRequest != nil {
			keys = append(keys, itemPrimaryKey(r.PutRequest.Item))
		}
	}
	return keys
}
