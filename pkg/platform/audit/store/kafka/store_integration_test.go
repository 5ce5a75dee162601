//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/testutil/containers"
)

func TestStore_ProducesToBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rp := containers.NewRedpandaContainer(t)
	const topic = "wmoned.audit.test"

	producer, err := NewClient(rp.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()

	store := New(producer, topic)
	require.NoError(t, store.Append(ctx, audit.Event{
		Action:        string(audit.EventProvisionsViewed),
		SubjectIDHash: "hash-1",
		Count:         2,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &body))
	assert.Equal(t, "provisions_viewed", body["action"])
	assert.Equal(t, float64(2), body["count"])
}
