// Package events publishes ingestion outcomes to Kafka once a run has
// committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jimezsa/jobmatch/internal/models"
)

const DefaultTopic = "jobmatch.postings"

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// PostingEvent is the message value. The message key is the posting URL so
// all events for one posting land on the same partition.
type PostingEvent struct {
	RunID            string        `json:"run_id"`
	Action           Action        `json:"action"`
	SourceURL        string        `json:"source_url"`
	Source           models.Source `json:"source"`
	Title            string        `json:"title"`
	CompanyName      string        `json:"company_name"`
	FraudProbability float64       `json:"fraud_probability"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

func NewPostingEvent(runID string, action Action, p models.JobPosting, at time.Time) PostingEvent {
	return PostingEvent{
		RunID:            runID,
		Action:           action,
		SourceURL:        p.SourceURL,
		Source:           p.Source,
		Title:            p.Title,
		CompanyName:      p.CompanyName,
		FraudProbability: p.FraudProbability,
		OccurredAt:       at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, events ...PostingEvent) error
	Close() error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// NewProducerWithWriter builds a producer over a custom writer (tests).
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes all events in one batch.
func (p *Producer) Publish(ctx context.Context, events ...PostingEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.SourceURL, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.SourceURL),
			Value: payload,
			Time:  event.OccurredAt,
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Discard drops every event. It stands in when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, ...PostingEvent) error { return nil }

func (Discard) Close() error { return nil }
