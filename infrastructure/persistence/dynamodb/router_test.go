package dynamodb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByID(t *testing.T) {
	p, err := resolve(ByID{PK: "ASSESSMENT#TRA-2025-ABCDEF", SK: "METADATA"})
	require.NoError(t, err)
	require.NotNil(t, p.get)
	assert.Nil(t, p.query)
	assert.Equal(t, "ASSESSMENT#TRA-2025-ABCDEF", p.get.pk)
	assert.Equal(t, "METADATA", p.get.sk)
}

func TestResolveItemsBySession(t *testing.T) {
	p, err := resolve(ItemsBySession{SessionID: "session-1"})
	require.NoError(t, err)
	require.NotNil(t, p.query)
	assert.Equal(t, IndexBySession, p.query.index)
	assert.Equal(t, attrSessionID, p.query.partitionAttr)
	assert.Equal(t, "session-1", p.query.partitionValue)
	assert.Nil(t, p.query.sort)
}

func TestResolveItemsBySessionWithTypePrefix(t *testing.T) {
	p, err := resolve(ItemsBySession{SessionID: "session-1", EntityTypePrefix: entityTypeDocument})
	require.NoError(t, err)
	require.NotNil(t, p.query.sort)
	assert.Equal(t, attrEntityType, p.query.sort.attribute)
	assert.Equal(t, entityTypeDocument, p.query.sort.value)
	assert.True(t, p.query.sort.beginsWith)
}

func TestResolveEventsByAssessment(t *testing.T) {
	p, err := resolve(EventsByAssessment{AssessmentID: "TRA-2025-ABCDEF", EventTypePrefix: "review"})
	require.NoError(t, err)
	require.NotNil(t, p.query)
	assert.Equal(t, IndexByAssessmentEvent, p.query.index)
	assert.Equal(t, attrAssessmentID, p.query.partitionAttr)
	require.NotNil(t, p.query.sort)
	assert.Equal(t, attrEventType, p.query.sort.attribute)
	assert.Equal(t, "review", p.query.sort.value)
	assert.True(t, p.query.sort.beginsWith)
}

func TestResolveAssessmentsByState(t *testing.T) {
	p, err := resolve(AssessmentsByState{State: "in_progress"})
	require.NoError(t, err)
	require.NotNil(t, p.query)
	assert.Equal(t, IndexByState, p.query.index)
	assert.Equal(t, attrCurrentState, p.query.partitionAttr)
	assert.Equal(t, "in_progress", p.query.partitionValue)
	assert.Nil(t, p.query.sort)
}

func TestResolveAssessmentsByTitlePrefix(t *testing.T) {
	p, err := resolve(AssessmentsByTitlePrefix{Prefix: "Cloud"})
	require.NoError(t, err)
	require.NotNil(t, p.query)
	assert.Equal(t, IndexByTitle, p.query.index)
	// titles partition on entity type and sort on the lowercase title
	assert.Equal(t, attrEntityType, p.query.partitionAttr)
	assert.Equal(t, entityTypeAssessment, p.query.partitionValue)
	require.NotNil(t, p.query.sort)
	assert.Equal(t, attrTitleLowercase, p.query.sort.attribute)
	assert.Equal(t, "cloud", p.query.sort.value)
	assert.True(t, p.query.sort.beginsWith)
}

func TestResolveItemsByType(t *testing.T) {
	p, err := resolve(ItemsByType{EntityType: entityTypeAssessment})
	require.NoError(t, err)
	require.NotNil(t, p.query)
	assert.Equal(t, IndexByEntityType, p.query.index)
	assert.Equal(t, attrEntityType, p.query.partitionAttr)
}

func TestResolveFallbackCoverage(t *testing.T) {
	shapes := []QueryShape{
		ItemsBySession{SessionID: "s"},
		EventsByAssessment{AssessmentID: "TRA-2025-ABCDEF"},
		AssessmentsByState{State: "draft"},
		AssessmentsByTitlePrefix{Prefix: "x"},
		ItemsByType{EntityType: entityTypeMessage},
	}
	for _, shape := range shapes {
		_, ok := resolveFallback(shape)
		assert.True(t, ok, "expected fallback for %T", shape)
	}

	// direct lookups never fall back to a scan
	_, ok := resolveFallback(ByID{PK: "p", SK: "s"})
	assert.False(t, ok)
}

func TestTitleFallbackMatchesRecordsWithoutTitleAttribute(t *testing.T) {
	// records predating the title index lack title_lowercase entirely, and a
	// filter naming a missing attribute never matches, so the scan filter
	// must not reference it
	cond, ok := resolveFallback(AssessmentsByTitlePrefix{Prefix: "cloud"})
	require.True(t, ok)

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	require.NoError(t, err)
	for _, name := range expr.Names() {
		assert.NotEqual(t, attrTitleLowercase, name)
	}
}
