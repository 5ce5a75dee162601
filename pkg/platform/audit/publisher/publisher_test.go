package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	release chan struct{}
	memory.InMemoryStore
}

func (s *blockingStore) Append(ctx context.Context, e audit.Event) error {
	<-s.release
	return s.InMemoryStore.Append(ctx, e)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:        string(audit.EventProvisionsViewed),
		SubjectIDHash: "abc",
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is filled in")
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	defer pub.Close()
	assert.Error(t, pub.Emit(context.Background(), audit.Event{}))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventProvisionsViewed)}))
	}
	require.NoError(t, pub.Close())

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_ComplianceIsFailClosed(t *testing.T) {
	metrics := NewMetricsWith(prometheus.NewRegistry())
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(10), WithMetrics(metrics))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventDocumentDownloaded)})
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures.WithLabelValues(string(audit.CategoryCompliance))))
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	metrics := NewMetricsWith(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(1), WithMetrics(metrics))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventProvisionsViewed)}))
		}()
	}
	wg.Wait()

	close(store.release)
	require.NoError(t, pub.Close())

	// one event is held by the drain goroutine, one sits in the buffer
	events, _ := store.ListAll(context.Background())
	dropped := testutil.ToFloat64(metrics.Dropped)
	assert.Equal(t, float64(10), float64(len(events))+dropped)
	assert.GreaterOrEqual(t, dropped, float64(8))
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Emit(context.Background(), audit.Event{Action: "x"}), ErrClosed)
}
