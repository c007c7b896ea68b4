package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/atmx/offer-engine/internal/metrics"
)

// ErrPublishSkipped is the publish result of an edit whose start failed.
var ErrPublishSkipped = errors.New("edit publish skipped")

// Completion is the eventual outcome of one registry command. It resolves
// exactly once; later resolutions are ignored.
type Completion struct {
	command string
	once    sync.Once
	done    chan struct{}
	err     error
}

func newCompletion(command string) *Completion {
	return &Completion{command: command, done: make(chan struct{})}
}

func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.OfferCommands.WithLabelValues(c.command, result).Inc()
	})
}

// Done is closed once the command has finished.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err is the command's error. It is nil until Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the command finishes or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EditResult carries the two phases of an edit. Publish resolves after
// Start; when Start fails, Publish fails with ErrPublishSkipped.
type EditResult struct {
	Start   *Completion
	Publish *Completion
}

// Wait blocks for both phases and returns the first failure.
func (r *EditResult) Wait(ctx context.Context) error {
	if err := r.Start.Wait(ctx); err != nil {
		return err
	}
	return r.Publish.Wait(ctx)
}
