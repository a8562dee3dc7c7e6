package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "tra-backend/pkg/errors"
)

func TestNewAssessment(t *testing.T) {
	a, err := NewAssessment("session-1", "Payment Gateway Review")
	require.NoError(t, err)
	assert.Equal(t, StateDraft, a.State)
	assert.Equal(t, int64(1), a.Version)
	assert.False(t, a.ID.IsEmpty())
	assert.NotNil(t, a.Answers)
}

func TestNewAssessmentRequiresSession(t *testing.T) {
	_, err := NewAssessment("", "Title")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAssessmentLifecycle(t *testing.T) {
	a, err := NewAssessment("session-1", "Lifecycle")
	require.NoError(t, err)

	require.NoError(t, a.Start())
	assert.Equal(t, StateInProgress, a.State)

	require.NoError(t, a.Complete())
	assert.Equal(t, StateComplete, a.State)
	assert.Equal(t, float64(100), a.CompletionPercentage)

	require.NoError(t, a.Archive())
	assert.Equal(t, StateArchived, a.State)
}

func TestAssessmentInvalidTransitions(t *testing.T) {
	a, err := NewAssessment("session-1", "Strict")
	require.NoError(t, err)

	// draft cannot complete or archive directly
	assert.True(t, pkgerrors.IsConflict(a.Complete()))
	assert.True(t, pkgerrors.IsConflict(a.Archive()))

	require.NoError(t, a.Start())
	assert.True(t, pkgerrors.IsConflict(a.Start()))
}

func TestArchivedAssessmentIsImmutable(t *testing.T) {
	a, err := NewAssessment("session-1", "Frozen")
	require.NoError(t, err)
	require.NoError(t, a.Start())
	require.NoError(t, a.Complete())
	require.NoError(t, a.Archive())

	assert.True(t, pkgerrors.IsConflict(a.Start()))
	assert.True(t, pkgerrors.IsConflict(a.RecordAnswer("q1", "yes", 10)))
}

func TestRecordAnswerTracksCompletion(t *testing.T) {
	a, err := NewAssessment("session-1", "Progress")
	require.NoError(t, err)

	require.NoError(t, a.RecordAnswer("q1", "yes", 4))
	assert.InDelta(t, 25.0, a.CompletionPercentage, 0.01)

	require.NoError(t, a.RecordAnswer("q2", "no", 4))
	assert.InDelta(t, 50.0, a.CompletionPercentage, 0.01)

	// re-answering the same question does not double count
	require.NoError(t, a.RecordAnswer("q2", "maybe", 4))
	assert.InDelta(t, 50.0, a.CompletionPercentage, 0.01)
}

func TestLinkDocumentRefreshesExisting(t *testing.T) {
	a, err := NewAssessment("session-1", "Docs")
	require.NoError(t, err)

	a.LinkDocument(DocumentSummary{DocumentID: "doc-1", Filename: "v1.pdf"})
	a.LinkDocument(DocumentSummary{DocumentID: "doc-2", Filename: "other.pdf"})
	a.LinkDocument(DocumentSummary{DocumentID: "doc-1", Filename: "v2.pdf"})

	require.Len(t, a.LinkedDocuments, 2)
	assert.Equal(t, "v2.pdf", a.LinkedDocuments[0].Filename)
}
