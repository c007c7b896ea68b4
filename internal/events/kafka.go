package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/atmx/offer-engine/internal/metrics"
)

const (
	kafkaQueueSize = 1024
	kafkaBatchSize = 100
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by offer id, so all events
// of one offer land on the same partition in order. Publish only queues;
// a single goroutine drains the queue in batches.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	queue   chan kafka.Message
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, kafkaQueueSize)
}

func newKafkaPublisher(w messageWriter, queueSize int) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:  w,
		timeout: 5 * time.Second,
		queue:   make(chan kafka.Message, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues e without waiting for the broker. A full queue drops the
// event. Failures are logged and counted, never returned: the registry
// change has already happened.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	msg, err := encodeMessage(e)
	if err != nil {
		slog.Error("encode offer event", "offer_id", e.OfferID, "err", err)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.EventsPublished.WithLabelValues("kafka", "dropped").Inc()
		return
	}
	select {
	case p.queue <- msg:
	default:
		metrics.EventsPublished.WithLabelValues("kafka", "dropped").Inc()
		slog.Warn("kafka queue full, event dropped", "offer_id", e.OfferID, "type", e.Type)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	batch := make([]kafka.Message, 0, kafkaBatchSize)
	for msg := range p.queue {
		batch = append(batch[:0], msg)
	drain:
		for len(batch) < kafkaBatchSize {
			select {
			case m, ok := <-p.queue:
				if !ok {
					break drain
				}
				batch = append(batch, m)
			default:
				break drain
			}
		}
		p.write(batch)
	}
}

func (p *KafkaPublisher) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		metrics.EventsPublished.WithLabelValues("kafka", "error").Add(float64(len(batch)))
		slog.Error("kafka publish failed", "messages", len(batch), "err", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("kafka", "ok").Add(float64(len(batch)))
}

// Close stops accepting events, flushes the queue and closes the writer.
// Safe to call more than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

func encodeMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.OfferID),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
