package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "tra-backend/pkg/errors"
)

func TestDocumentIngestionFlow(t *testing.T) {
	d, err := NewDocument("session-1", "design.pdf", "application/pdf", "uploads/design.pdf", 4096)
	require.NoError(t, err)
	assert.Equal(t, DocumentUploading, d.Status)

	require.NoError(t, d.MarkProcessing())
	require.NoError(t, d.MarkReady("a design document", []string{"architecture"}))
	assert.Equal(t, DocumentReady, d.Status)
	assert.Equal(t, "a design document", d.ContentSummary)
}

func TestDocumentFailure(t *testing.T) {
	d, err := NewDocument("session-1", "broken.bin", "application/octet-stream", "uploads/broken.bin", 1)
	require.NoError(t, err)

	require.NoError(t, d.MarkFailed("unsupported format"))
	assert.Equal(t, DocumentFailed, d.Status)
	assert.Equal(t, "unsupported format", d.FailureReason)

	// terminal states reject further transitions
	assert.True(t, pkgerrors.IsConflict(d.MarkFailed("again")))
	assert.True(t, pkgerrors.IsConflict(d.MarkProcessing()))
}

func TestDocumentReadyRequiresProcessing(t *testing.T) {
	d, err := NewDocument("session-1", "f.pdf", "application/pdf", "k", 1)
	require.NoError(t, err)

	err = d.MarkReady("summary", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestDocumentSummaryView(t *testing.T) {
	d, err := NewDocument("session-1", "spec.pdf", "application/pdf", "uploads/spec.pdf", 100)
	require.NoError(t, err)
	require.NoError(t, d.MarkProcessing())
	require.NoError(t, d.MarkReady("the spec", []string{"requirements"}))

	s := d.Summary()
	assert.Equal(t, d.ID, s.DocumentID)
	assert.Equal(t, "spec.pdf", s.Filename)
	assert.Equal(t, "the spec", s.ContentSummary)
	assert.Equal(t, d.CreatedAt, s.UploadedAt)
}
