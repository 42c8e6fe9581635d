package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goharvest/internal/events"
	"github.com/jonesrussell/goharvest/internal/testhelpers"
)

func TestNewPublisherNilClient(t *testing.T) {
	p := events.NewPublisher(nil, testhelpers.NewTestLogger())
	assert.Nil(t, p)

	// A nil publisher is a working no-op Notifier.
	var notifier events.Notifier = p
	notifier.NotifyStarted(events.StartedPayload{ExecutionID: "exec-1"})
	notifier.NotifyCompleted(events.CompletedPayload{ExecutionID: "exec-1"})

	assert.NoError(t, p.Publish(context.Background(), events.Event{}))
}

func TestEventEnvelopeJSON(t *testing.T) {
	event := events.Event{
		EventID:   uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		EventType: events.ExecutionCompleted,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload: events.CompletedPayload{
			ExecutionID: "exec-1",
			SourceID:    "source-1",
			Status:      "completed",
			Found:       5,
			New:         2,
			Duplicates:  2,
			Errors:      1,
			DurationMs:  1500,
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "EXECUTION_COMPLETED", decoded["event_type"])
	payload, ok := decoded["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "exec-1", payload["execution_id"])
	assert.Equal(t, float64(5), payload["found"])
	assert.Equal(t, float64(1500), payload["duration_ms"])
}

func TestNopNotifier(t *testing.T) {
	var notifier events.Notifier = events.NopNotifier{}

	// All hooks are safe no-ops.
	notifier.NotifyStarted(events.StartedPayload{})
	notifier.NotifyLog(events.LogPayload{})
	notifier.NotifyProgress(events.ProgressPayload{})
	notifier.NotifyDocumentFound(events.DocumentFoundPayload{})
	notifier.NotifyCompleted(events.CompletedPayload{})
	notifier.NotifyFailed(events.FailedPayload{})
}
