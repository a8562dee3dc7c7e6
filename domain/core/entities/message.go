package entities

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "tra-backend/pkg/errors"
)

// MessageRole identifies the sender of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one turn of the conversational session that drives an assessment
type Message struct {
	ID           string      `json:"message_id"`
	SessionID    string      `json:"session_id"`
	AssessmentID string      `json:"assessment_id,omitempty"`
	Role         MessageRole `json:"role"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
}

// NewMessage creates a chat message for a session
func NewMessage(sessionID string, role MessageRole, content string) (*Message, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("sessionID cannot be empty")
	}
	if role != RoleUser && role != RoleAssistant && role != RoleSystem {
		return nil, pkgerrors.NewValidationError("unknown message role")
	}

	return &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}, nil
}
