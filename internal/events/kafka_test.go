package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	release chan struct{}

	mu     sync.Mutex
	got    []kafka.Message
	closed bool
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{release: make(chan struct{})}
}

func (w *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.got = append(w.got, msgs...)
	return nil
}

func (w *blockingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *blockingWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.got...)
}

func eventFor(id string) Event {
	e := sampleEvent()
	e.OfferID = id
	return e
}

func TestKafkaPublisher_PublishDoesNotWaitForBroker(t *testing.T) {
	w := newBlockingWriter()
	p := newKafkaPublisher(w, 8)

	returned := make(chan struct{})
	go func() {
		for _, id := range []string{"a", "b", "c"} {
			p.Publish(context.Background(), eventFor(id))
		}
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled broker")
	}

	close(w.release)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	got := w.messages()
	if len(got) != 3 {
		t.Fatalf("delivered %d messages, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(got[i].Key) != want {
			t.Errorf("message %d key = %q, want %q", i, got[i].Key, want)
		}
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestKafkaPublisher_DropsWhenQueueFull(t *testing.T) {
	w := newBlockingWriter()
	p := newKafkaPublisher(w, 1)

	for i := 0; i < 10; i++ {
		p.Publish(context.Background(), eventFor("offer"))
	}
	close(w.release)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	// One batch may be in flight plus one queued message; the rest drop.
	if n := len(w.messages()); n == 0 || n >= 10 {
		t.Errorf("delivered %d of 10 messages, want some dropped", n)
	}
}

func TestKafkaPublisher_PublishAfterClose(t *testing.T) {
	w := newBlockingWriter()
	close(w.release)
	p := newKafkaPublisher(w, 4)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	p.Publish(context.Background(), eventFor("late"))
	if n := len(w.messages()); n != 0 {
		t.Errorf("delivered %d messages after Close", n)
	}
}

func TestKafkaPublisher_WriteErrorIsNotFatal(t *testing.T) {
	p := newKafkaPublisher(failingWriter{}, 4)
	p.Publish(context.Background(), eventFor("a"))
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

type failingWriter struct{}

func (failingWriter) WriteMessages(context.Context, ...kafka.Message) error {
	return errors.New("broker unavailable")
}

func (failingWriter) Close() error { return nil }
