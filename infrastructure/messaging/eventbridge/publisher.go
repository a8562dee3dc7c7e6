package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	pkgerrors "tra-backend/pkg/errors"
)

// eventSource identifies this service on the bus
const eventSource = "tra.backend"

// maxEntriesPerPut is the bus's cap on entries per PutEvents call
const maxEntriesPerPut = 10

// eventBridgeAPI is the slice of the EventBridge API the publisher uses
type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher pushes audit events onto an EventBridge bus for downstream
// consumers (notifications, reporting).
type Publisher struct {
	client  eventBridgeAPI
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher
func NewPublisher(client eventBridgeAPI, busName string, logger *zap.Logger) (ports.EventPublisher, error) {
	if client == nil {
		return nil, pkgerrors.NewValidationError("eventbridge client cannot be nil")
	}
	if busName == "" {
		return nil, pkgerrors.NewValidationError("event bus name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, busName: busName, logger: logger}, nil
}

// Publish sends a single event to the bus
func (p *Publisher) Publish(ctx context.Context, e *entities.Event) error {
	return p.PublishBatch(ctx, []*entities.Event{e})
}

// PublishBatch sends events in bus-sized batches. Entries the bus rejects
// are counted into the returned error; accepted entries are not rolled back.
func (p *Publisher) PublishBatch(ctx context.Context, events []*entities.Event) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		detail, err := json.Marshal(e)
		if err != nil {
			return pkgerrors.NewInternalError("failed to marshal event detail").WithCause(err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(string(e.Type)),
			Detail:       aws.String(string(detail)),
		})
	}

	var failed int
	for start := 0; start < len(entries); start += maxEntriesPerPut {
		end := start + maxEntriesPerPut
		if end > len(entries) {
			end = len(entries)
		}

		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
			Entries: entries[start:end],
		})
		if err != nil {
			return pkgerrors.NewExternalError("eventbridge", err)
		}
		if out.FailedEntryCount > 0 {
			failed += int(out.FailedEntryCount)
			for _, entry := range out.Entries {
				if entry.ErrorCode != nil {
					p.logger.Warn("event bus rejected entry",
						zap.String("error_code", aws.ToString(entry.ErrorCode)),
						zap.String("error_message", aws.ToString(entry.ErrorMessage)))
				}
			}
		}
	}

	if failed > 0 {
		return pkgerrors.NewExternalError("eventbridge",
			fmt.Errorf("%d of %d entries rejected", failed, len(entries)))
	}
	p.logger.Debug("published events", zap.Int("count", len(entries)))
	return nil
}
