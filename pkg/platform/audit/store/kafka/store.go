// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "wmoned/pkg/platform/audit"
)

// payload is the JSON record written to the topic.
type payload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	Subject       string `json:"subject,omitempty"`
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	Action        string `json:"action"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	ClientSummary string `json:"client_summary,omitempty"`
	Count         int    `json:"count,omitempty"`
}

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store implements audit.Store by producing one record per event. Records are
// keyed by subject hash so a citizen's events stay ordered in one partition.
type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// NewClient creates a franz-go client for brokers that produces to topic by default.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	value, err := json.Marshal(payload{
		ID:            id,
		Category:      string(category),
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Subject:       event.Subject,
		SubjectIDHash: event.SubjectIDHash,
		Action:        event.Action,
		Decision:      event.Decision,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		ClientIP:      event.ClientIP,
		ClientSummary: event.ClientSummary,
		Count:         event.Count,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.SubjectIDHash),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Decode parses a record value written by Append.
func Decode(value []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(value, &p); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	if p.ID == "" || p.Action == "" {
		return audit.Event{}, errors.New("audit payload missing id or action")
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("audit payload timestamp: %w", err)
	}
	return audit.Event{
		ID:            p.ID,
		Category:      audit.EventCategory(p.Category),
		Timestamp:     ts,
		Subject:       p.Subject,
		SubjectIDHash: p.SubjectIDHash,
		Action:        p.Action,
		Decision:      p.Decision,
		Reason:        p.Reason,
		RequestID:     p.RequestID,
		ClientIP:      p.ClientIP,
		ClientSummary: p.ClientSummary,
		Count:         p.Count,
	}, nil
}
