package dynamodb

import (
	"context"

	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
)

// auditor records audit-trail events alongside repository writes and pushes
// them to the event bus. Auditing is best effort: a failed append or publish
// is logged and never fails the write it describes.
type auditor struct {
	events    ports.EventRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

func newAuditor(events ports.EventRepository, publisher ports.EventPublisher, logger *zap.Logger) *auditor {
	return &auditor{events: events, publisher: publisher, logger: logger}
}

func (a *auditor) record(ctx context.Context, assessmentID, sessionID string, eventType entities.EventType, description string, payload map[string]interface{}) {
	if a == nil || assessmentID == "" {
		return
	}

	e, err := entities.NewEvent(assessmentID, eventType, description)
	if err != nil {
		a.logger.Warn("failed to build audit event",
			zap.String("assessment_id", assessmentID),
			zap.Error(err))
		return
	}
	e.SessionID = sessionID
	if payload != nil {
		e.WithPayload(payload)
	}

	if a.events != nil {
		if err := a.events.Append(ctx, e); err != nil {
			a.logger.Warn("failed to append audit event",
				zap.String("assessment_id", assessmentID),
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, e); err != nil {
			a.logger.Warn("failed to publish audit event",
				zap.String("assessment_id", assessmentID),
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}
}
