package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
)

const (
	defaultBufferSize = 1000
	defaultBatchSize  = 100
	drainTimeout      = 5 * time.Second
)

// Publisher sends a batch of events to the broker.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers query events and publishes them in batches from a
// single background goroutine. Track never blocks: events are dropped when
// the buffer is full, after the Start context ends, or after Close.
type Collector struct {
	publisher Publisher
	batchSize int
	eventCh   chan QueryEvent
	done      chan struct{}
	logger    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	stopped bool
	started bool
	dropped atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize, batchSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Collector{
		publisher: publisher,
		batchSize: batchSize,
		eventCh:   make(chan QueryEvent, bufferSize),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publishing goroutine. Cancelling ctx stops intake,
// publishes what is still buffered and stops the goroutine.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.collect(event))
			case <-ctx.Done():
				c.stop()
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
	)
}

func (c *Collector) Track(event QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.stopped {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)", "op", event.Op)
	}
}

// Dropped reports how many events were discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits until the buffered ones are
// published. Events buffered by a collector that was never started are
// counted as dropped.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	close(c.eventCh)
	c.mu.Unlock()

	if started {
		<-c.done
		return
	}
	c.dropped.Add(int64(len(c.eventCh)))
}

// stop ends intake. Track holds the read lock while sending, so once stop
// returns nothing more reaches the channel.
func (c *Collector) stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// collect gathers whatever is already buffered, up to one batch.
func (c *Collector) collect(first QueryEvent) []kafka.Event {
	batch := []kafka.Event{toKafka(first)}
	for len(batch) < c.batchSize {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
	return batch
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events",
			"count", len(batch),
			"error", err,
		)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, c.collect(event))
		default:
			return
		}
	}
}

func toKafka(event QueryEvent) kafka.Event {
	return kafka.Event{Key: event.Op, Value: event}
}
