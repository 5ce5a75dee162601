// Package consumer moves audit events from the Kafka topic into a durable
// store.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "wmoned/pkg/platform/audit"
	kafkastore "wmoned/pkg/platform/audit/store/kafka"
)

// Fetcher is the subset of *kgo.Client the consumer needs.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitUncommittedOffsets(ctx context.Context) error
}

type Metrics struct {
	Records *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Records: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_audit_sink_records_total",
			Help: "Audit records consumed, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) inc(outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
}

type Consumer struct {
	client  Fetcher
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Consumer)

func WithMetrics(m *Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

func New(client Fetcher, store audit.Store, logger *slog.Logger, opts ...Option) *Consumer {
	c := &Consumer{client: client, store: store, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGroupClient creates a franz-go client that joins group on topic with
// manual commits.
func NewGroupClient(brokers []string, topic, group string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic with the broker's default partition count and
// replication factor. An existing topic is left alone.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	resp, err := kadm.NewClient(client).CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Run polls until ctx is done. Offsets are committed after a whole batch is
// stored; a store failure stops the loop so the batch is redelivered.
// Malformed records are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "audit fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var storeErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if storeErr == nil {
				storeErr = c.handle(ctx, r)
			}
		})
		if storeErr != nil {
			return storeErr
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			return fmt.Errorf("commit audit offsets: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, r *kgo.Record) error {
	event, err := kafkastore.Decode(r.Value)
	if err != nil {
		c.metrics.inc("malformed")
		c.logger.ErrorContext(ctx, "skipping malformed audit record",
			"partition", r.Partition,
			"offset", r.Offset,
			"error", err,
		)
		return nil
	}
	if err := c.store.Append(ctx, event); err != nil {
		c.metrics.inc("failed")
		return fmt.Errorf("store audit event %s: %w", event.ID, err)
	}
	c.metrics.inc("stored")
	return nil
}
