package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 10 * time.Second

// KafkaPublisher hands events to a background writer so request paths never
// wait on the broker. When the inbox is full the event is dropped and
// logged. Topics are TopicPrefix + event type.
type KafkaPublisher struct {
	w           *kafka.Writer
	producer    string
	topicPrefix string
	inbox       chan kafka.Message
	done        chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewKafkaPublisher(brokers []string, topicPrefix, producer string, buf int) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		producer:    producer,
		topicPrefix: topicPrefix,
		inbox:       make(chan kafka.Message, buf),
		done:        make(chan struct{}),
	}
}

// Start runs the writer loop until Close drains the inbox.
func (p *KafkaPublisher) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				log.Error().Err(err).Str("topic", m.Topic).Str("key", string(m.Key)).Msg("Kafka publish failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			log.Error().Err(err).Msg("Kafka writer close failed")
		}
	}()
}

// Publish enqueues without blocking. ctx is accepted for the Publisher
// contract; a committed settlement never waits on the broker.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	msg, err := p.message(e)
	if err != nil {
		log.Error().Err(err).Str("event_type", e.Type).Msg("Failed to encode event")
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(e, "publisher closed")
		return
	}

	select {
	case p.inbox <- msg:
	default:
		p.drop(e, "inbox full")
	}
}

func (p *KafkaPublisher) drop(e Event, reason string) {
	n := p.dropped.Add(1)
	log.Warn().
		Str("event_type", e.Type).
		Str("key", e.Key).
		Str("reason", reason).
		Int64("dropped_total", n).
		Msg("Event dropped")
}

// Dropped reports how many events were discarded since start.
func (p *KafkaPublisher) Dropped() int64 { return p.dropped.Load() }

// Close flushes queued messages and stops the writer. Start must have run.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

func (p *KafkaPublisher) message(e Event) (kafka.Message, error) {
	env, err := NewEnvelope(p.producer, e)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: p.topicPrefix + e.Type,
		Key:   []byte(e.Key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}, nil
}
