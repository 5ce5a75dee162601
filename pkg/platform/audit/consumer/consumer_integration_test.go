//go:build integration

package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	audit "wmoned/pkg/platform/audit"
	kafkastore "wmoned/pkg/platform/audit/store/kafka"
	pgstore "wmoned/pkg/platform/audit/store/postgres"
	"wmoned/pkg/testutil/containers"
)

func TestConsumer_KafkaToPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka/postgres integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	rp := containers.NewRedpandaContainer(t)
	pg := containers.NewPostgresContainer(t)
	const topic = "wmoned.audit.sink"

	producer, err := kafkastore.NewClient(rp.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafkastore.New(producer, topic).Append(ctx, audit.Event{
		Action:        string(audit.EventDocumentDownloaded),
		SubjectIDHash: "hash-sink",
	}))

	store := pgstore.New(pg.Pool)
	require.NoError(t, store.EnsureSchema(ctx))

	client, err := NewGroupClient(rp.Brokers, topic, "sink-test")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, EnsureTopic(ctx, client, topic))
	require.NoError(t, EnsureTopic(ctx, client, topic), "existing topic is not an error")

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- New(client, store, discardLogger()).Run(runCtx) }()

	require.Eventually(t, func() bool {
		events, err := store.ListBySubject(ctx, "hash-sink")
		return err == nil && len(events) == 1
	}, 60*time.Second, 250*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
