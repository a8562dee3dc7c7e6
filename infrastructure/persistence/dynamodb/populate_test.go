package dynamodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tra-backend/domain/core/entities"
)

func TestPopulateAssessment(t *testing.T) {
	a, err := entities.NewAssessment("session-1", "Cloud Migration Review")
	require.NoError(t, err)

	now := a.UpdatedAt.Add(time.Minute)
	item := populateAssessment(a, now)

	assert.Equal(t, "ASSESSMENT#"+a.ID.String(), item.PK)
	assert.Equal(t, "METADATA", item.SK)
	assert.Equal(t, entityTypeAssessment, item.EntityType)
	assert.Equal(t, "session-1", item.SessionID)
	assert.Equal(t, "cloud migration review", item.TitleLowercase)
	assert.Equal(t, string(entities.StateDraft), item.CurrentState)
	assert.Equal(t, formatTime(now), item.UpdatedAt)
}

func TestPopulateAssessmentMonotonicUpdatedAt(t *testing.T) {
	a, err := entities.NewAssessment("session-1", "Title")
	require.NoError(t, err)
	a.UpdatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// clock regression keeps the previous timestamp
	earlier := a.UpdatedAt.Add(-time.Hour)
	item := populateAssessment(a, earlier)
	assert.Equal(t, formatTime(a.UpdatedAt), item.UpdatedAt)

	// normal clock advances it
	later := a.UpdatedAt.Add(time.Hour)
	item = populateAssessment(a, later)
	assert.Equal(t, formatTime(later), item.UpdatedAt)
}

func TestPopulateAssessmentDoesNotMutateEntity(t *testing.T) {
	a, err := entities.NewAssessment("session-1", "Title")
	require.NoError(t, err)
	before := a.UpdatedAt

	populateAssessment(a, before.Add(time.Hour))
	assert.Equal(t, before, a.UpdatedAt)
}

func TestPopulateDocument(t *testing.T) {
	d, err := entities.NewDocument("session-1", "design.pdf", "application/pdf", "uploads/design.pdf", 2048)
	require.NoError(t, err)

	item := populateDocument(d, time.Now())

	assert.Equal(t, "DOCUMENT#"+d.ID, item.PK)
	assert.Equal(t, "METADATA", item.SK)
	assert.Equal(t, entityTypeDocument, item.EntityType)
	assert.Equal(t, string(entities.DocumentUploading), item.Status)
	assert.Equal(t, int64(2048), item.FileSize)
}

func TestPopulateEventKeyOrdering(t *testing.T) {
	first, err := entities.NewEvent("TRA-2025-ABCDEF", entities.EventAssessmentCreated, "created")
	require.NoError(t, err)
	first.Timestamp = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	second, err := entities.NewEvent("TRA-2025-ABCDEF", entities.EventStateChanged, "started")
	require.NoError(t, err)
	second.Timestamp = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	now := time.Now()
	firstItem := populateEvent(first, now)
	secondItem := populateEvent(second, now)

	assert.Equal(t, firstItem.PK, secondItem.PK)
	// sort keys embed the timestamp, so string order is chronological
	assert.Less(t, firstItem.SK, secondItem.SK)
}

func TestPopulateMessage(t *testing.T) {
	m, err := entities.NewMessage("session-7", entities.RoleUser, "hello")
	require.NoError(t, err)

	item := populateMessage(m, time.Now())

	assert.Equal(t, "SESSION#session-7", item.PK)
	assert.Contains(t, item.SK, "MESSAGE#")
	assert.Contains(t, item.SK, m.ID)
	assert.Equal(t, entityTypeMessage, item.EntityType)
}

func TestAssessmentItemRoundTrip(t *testing.T) {
	a, err := entities.NewAssessment("session-1", "Round Trip")
	require.NoError(t, err)
	a.Description = "a description"
	require.NoError(t, a.RecordAnswer("q1", "yes", 4))
	a.LinkDocument(entities.DocumentSummary{
		DocumentID: "doc-1",
		Filename:   "spec.pdf",
		UploadedAt: time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC),
	})

	item := populateAssessment(a, time.Now())
	got, err := item.toEntity()
	require.NoError(t, err)

	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Answers, got.Answers)
	assert.Equal(t, a.State, got.State)
	require.Len(t, got.LinkedDocuments, 1)
	assert.Equal(t, "doc-1", got.LinkedDocuments[0].DocumentID)
}

func TestAssessmentItemRejectsMalformedID(t *testing.T) {
	item := assessmentItem{AssessmentID: "not-a-tra-id"}
	_, err := item.toEntity()
	require.Error(t, err)
}
