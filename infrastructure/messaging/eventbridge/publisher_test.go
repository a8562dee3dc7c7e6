package eventbridge

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tra-backend/domain/core/entities"
	pkgerrors "tra-backend/pkg/errors"
)

type fakeEventBridge struct {
	inputs  []*eventbridge.PutEventsInput
	outputs []*eventbridge.PutEventsOutput
	err     error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, params *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) > 0 {
		out := f.outputs[0]
		f.outputs = f.outputs[1:]
		return out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func testEvents(t *testing.T, n int) []*entities.Event {
	t.Helper()
	events := make([]*entities.Event, 0, n)
	for i := 0; i < n; i++ {
		e, err := entities.NewEvent("TRA-2025-ABCDEF", entities.EventStateChanged, "changed")
		require.NoError(t, err)
		events = append(events, e)
	}
	return events
}

func TestPublishSingleEvent(t *testing.T) {
	f := &fakeEventBridge{}
	p, err := NewPublisher(f, "tra-events", zap.NewNop())
	require.NoError(t, err)

	e := testEvents(t, 1)[0]
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, f.inputs, 1)
	require.Len(t, f.inputs[0].Entries, 1)
	entry := f.inputs[0].Entries[0]
	assert.Equal(t, "tra-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, string(entities.EventStateChanged), aws.ToString(entry.DetailType))
	assert.Contains(t, aws.ToString(entry.Detail), e.ID)
}

func TestPublishBatchSplitsAtBusLimit(t *testing.T) {
	f := &fakeEventBridge{}
	p, err := NewPublisher(f, "tra-events", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.PublishBatch(context.Background(), testEvents(t, 23)))

	require.Len(t, f.inputs, 3)
	assert.Len(t, f.inputs[0].Entries, 10)
	assert.Len(t, f.inputs[1].Entries, 10)
	assert.Len(t, f.inputs[2].Entries, 3)
}

func TestPublishBatchReportsRejectedEntries(t *testing.T) {
	f := &fakeEventBridge{outputs: []*eventbridge.PutEventsOutput{{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")},
			{EventId: aws.String("ok")},
		},
	}}}
	p, err := NewPublisher(f, "tra-events", zap.NewNop())
	require.NoError(t, err)

	err = p.PublishBatch(context.Background(), testEvents(t, 2))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
}

func TestPublishBatchTransportFailure(t *testing.T) {
	f := &fakeEventBridge{err: errors.New("timeout")}
	p, err := NewPublisher(f, "tra-events", zap.NewNop())
	require.NoError(t, err)

	err = p.Publish(context.Background(), testEvents(t, 1)[0])
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
}

func TestPublishEmptyBatch(t *testing.T) {
	f := &fakeEventBridge{}
	p, err := NewPublisher(f, "tra-events", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Empty(t, f.inputs)
}
