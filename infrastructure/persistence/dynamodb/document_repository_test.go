package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tra-backend/application/ports"
	"tra-backend/domain/core/entities"
	"tra-backend/domain/core/valueobjects"
	pkgerrors "tra-backend/pkg/errors"
)

func newDocumentRepo(t *testing.T, f *fakeDynamo) ports.DocumentRepository {
	t.Helper()
	store := newTestStore(f)
	writer, err := NewBatchWriter(f, "test-table", zap.NewNop(), 1, 3)
	require.NoError(t, err)
	writer.baseBackoff = 0
	repo, err := NewDocumentRepository(store, writer, nil, nil, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func storedDocument(t *testing.T, sessionID, filename string) map[string]types.AttributeValue {
	t.Helper()
	d, err := entities.NewDocument(sessionID, filename, "application/pdf", "uploads/"+filename, 1024)
	require.NoError(t, err)
	return mustMarshal(populateDocument(d, d.UpdatedAt))
}

func TestDocumentCreate(t *testing.T) {
	f := &fakeDynamo{}
	repo := newDocumentRepo(t, f)

	d, err := entities.NewDocument("session-1", "arch.pdf", "application/pdf", "uploads/arch.pdf", 512)
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, int64(1), d.Version)

	require.Len(t, f.putInputs, 1)
	assert.NotNil(t, f.putInputs[0].ConditionExpression)
}

func TestDocumentGetByIDNotFound(t *testing.T) {
	repo := newDocumentRepo(t, &fakeDynamo{})

	_, err := repo.GetByID(context.Background(), "missing-doc")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDocumentUpdateStaleVersion(t *testing.T) {
	f := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("stale")}}
	repo := newDocumentRepo(t, f)

	d, err := entities.NewDocument("session-1", "f.pdf", "application/pdf", "k", 1)
	require.NoError(t, err)
	d.Version = 2

	err = repo.Update(context.Background(), d)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestDocumentListBySessionUsesSessionIndex(t *testing.T) {
	f := &fakeDynamo{queryOutputs: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{storedDocument(t, "session-9", "a.pdf")}},
	}}
	repo := newDocumentRepo(t, f)

	docs, err := repo.ListBySession(context.Background(), "session-9", ports.ListOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Filename)

	require.Len(t, f.queryInputs, 1)
	assert.Equal(t, IndexBySession, aws.ToString(f.queryInputs[0].IndexName))
}

func storedLinkTarget(t *testing.T, sessionID string) (*entities.Assessment, map[string]types.AttributeValue) {
	t.Helper()
	a, err := entities.NewAssessment(sessionID, "Link Target")
	require.NoError(t, err)
	return a, mustMarshal(populateAssessment(a, a.UpdatedAt))
}

func TestLinkToAssessment(t *testing.T) {
	target, targetItem := storedLinkTarget(t, "session-5")
	f := &fakeDynamo{
		queryOutputs: []*dynamodb.QueryOutput{
			{Items: []map[string]types.AttributeValue{
				storedDocument(t, "session-5", "one.pdf"),
				storedDocument(t, "session-5", "two.pdf"),
			}},
		},
		getOutput: &dynamodb.GetItemOutput{Item: targetItem},
	}
	repo := newDocumentRepo(t, f)

	result, err := repo.LinkToAssessment(context.Background(), "session-5", target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Failed)

	require.Len(t, f.batchInputs, 1)
	written := f.batchInputs[0].RequestItems["test-table"]
	require.Len(t, written, 2)
	for _, req := range written {
		got, ok := req.PutRequest.Item[attrAssessmentID].(*types.AttributeValueMemberS)
		require.True(t, ok, "linked document must carry the assessment id")
		assert.Equal(t, target.ID.String(), got.Value)

		version, ok := req.PutRequest.Item[attrVersion].(*types.AttributeValueMemberN)
		require.True(t, ok)
		assert.Equal(t, "2", version.Value, "link rewrites bump the version")
	}

	// the assessment record is rewritten to carry the linked summaries
	require.Len(t, f.putInputs, 1)
	rewrite := f.putInputs[0]
	assert.NotNil(t, rewrite.ConditionExpression, "the refresh is version-checked")

	linked, ok := rewrite.Item["linked_documents"].(*types.AttributeValueMemberL)
	require.True(t, ok, "assessment rewrite must carry linked_documents")
	assert.Len(t, linked.Value, 2)

	version, ok := rewrite.Item[attrVersion].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "2", version.Value)
}

func TestLinkToAssessmentNoDocuments(t *testing.T) {
	f := &fakeDynamo{}
	repo := newDocumentRepo(t, f)

	result, err := repo.LinkToAssessment(context.Background(), "empty-session", valueobjects.NewAssessmentID())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Empty(t, f.batchInputs)
}

func TestLinkToAssessmentPartialFailure(t *testing.T) {
	target, targetItem := storedLinkTarget(t, "session-5")
	docs := []map[string]types.AttributeValue{
		storedDocument(t, "session-5", "one.pdf"),
		storedDocument(t, "session-5", "two.pdf"),
	}
	f := &fakeDynamo{
		queryOutputs: []*dynamodb.QueryOutput{{Items: docs}},
		getOutput:    &dynamodb.GetItemOutput{Item: targetItem},
	}
	repo := newDocumentRepo(t, f)

	// the second rewrite stays unprocessed through every retry
	stuckKey := docs[1][attrPK].(*types.AttributeValueMemberS).Value
	stuck := map[string]types.AttributeValue{
		attrPK: stringAttr(stuckKey),
		attrSK: stringAttr(skMetadata),
	}
	for i := 0; i < 4; i++ {
		f.batchOutputs = append(f.batchOutputs, unprocessedFor(stuck))
	}

	result, err := repo.LinkToAssessment(context.Background(), "session-5", target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, primaryKey(stuckKey, skMetadata), result.Failed[0])

	// only the successfully written document reaches the assessment summaries
	require.Len(t, f.putInputs, 1)
	linked, ok := f.putInputs[0].Item["linked_documents"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	assert.Len(t, linked.Value, 1)
}

func TestLinkToAssessmentRefreshConflict(t *testing.T) {
	target, targetItem := storedLinkTarget(t, "session-5")
	f := &fakeDynamo{
		queryOutputs: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
			storedDocument(t, "session-5", "one.pdf"),
		}}},
		getOutput: &dynamodb.GetItemOutput{Item: targetItem},
		putErr:    &types.ConditionalCheckFailedException{Message: aws.String("stale")},
	}
	repo := newDocumentRepo(t, f)

	_, err := repo.LinkToAssessment(context.Background(), "session-5", target.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	// each attempt re-reads the assessment before giving up
	assert.Len(t, f.getInputs, 3)
}
