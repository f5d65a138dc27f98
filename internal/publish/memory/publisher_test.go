package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/scrape"
)

func TestPublishRecordsEncodedRunEvents(t *testing.T) {
	t.Parallel()

	p := New()
	entry := scrape.RunLogEntry{
		RunID:         "run-1",
		Target:        "acme",
		Status:        scrape.RunStatusSuccess,
		ListingsFound: 4,
		StartedAt:     time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
	}

	id, err := p.Publish(context.Background(), "runs", entry)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = p.Publish(context.Background(), "runs", scrape.RunLogEntry{RunID: "run-1", Target: "globex"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	events := p.Events()
	require.Len(t, events, 2)
	require.Equal(t, "runs", events[0].Topic)

	// Payloads carry the same JSON encoding the wire publisher sends.
	var decoded scrape.RunLogEntry
	require.NoError(t, json.Unmarshal(events[0].Data, &decoded))
	require.Equal(t, entry, decoded)
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Publish(context.Background(), "runs", func() {})
	require.Error(t, err)
	require.Empty(t, p.Events())
}
