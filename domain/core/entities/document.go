package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "tra-backend/pkg/errors"
)

// DocumentStatus represents the ingestion state of an uploaded document
type DocumentStatus string

const (
	DocumentUploading  DocumentStatus = "uploading"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is the metadata record for an uploaded file. The file body lives
// in object storage; only the S3 key is persisted here.
type Document struct {
	ID             string         `json:"document_id"`
	AssessmentID   string         `json:"assessment_id,omitempty"`
	SessionID      string         `json:"session_id"`
	Status         DocumentStatus `json:"status"`
	Filename       string         `json:"filename"`
	FileSize       int64          `json:"file_size"`
	ContentType    string         `json:"content_type"`
	S3Key          string         `json:"s3_key"`
	ContentSummary string         `json:"content_summary,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewDocument creates an uploading-state document for a session
func NewDocument(sessionID, filename, contentType, s3Key string, fileSize int64) (*Document, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("sessionID cannot be empty")
	}
	if filename == "" {
		return nil, pkgerrors.NewValidationError("filename cannot be empty")
	}

	now := time.Now().UTC()
	return &Document{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Status:      DocumentUploading,
		Filename:    filename,
		FileSize:    fileSize,
		ContentType: contentType,
		S3Key:       s3Key,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkProcessing moves an uploading document into processing
func (d *Document) MarkProcessing() error {
	if d.Status != DocumentUploading {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("document %s cannot start processing from %s", d.ID, d.Status))
	}
	d.Status = DocumentProcessing
	return nil
}

// MarkReady records the derived summary and moves the document into ready
func (d *Document) MarkReady(summary string, tags []string) error {
	if d.Status != DocumentProcessing {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("document %s cannot become ready from %s", d.ID, d.Status))
	}
	d.Status = DocumentReady
	d.ContentSummary = summary
	d.Tags = tags
	return nil
}

// MarkFailed records the failure reason; terminal alongside ready
func (d *Document) MarkFailed(reason string) error {
	if d.Status == DocumentReady || d.Status == DocumentFailed {
		return pkgerrors.NewConflictError(
			fmt.Sprintf("document %s is already %s", d.ID, d.Status))
	}
	d.Status = DocumentFailed
	d.FailureReason = reason
	return nil
}

// Summary returns the denormalized view stored on the owning assessment
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		DocumentID:     d.ID,
		Filename:       d.Filename,
		ContentSummary: d.ContentSummary,
		Tags:           d.Tags,
		UploadedAt:     d.CreatedAt,
	}
}
