package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
)

// Sink delivers one event to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event notification.Event) error
}

// Config holds dispatcher configuration
type Config struct {
	WorkerCount     int           // default: 2
	QueueSize       int           // default: 1000
	DeliveryTimeout time.Duration // default: 10 seconds
}

// Dispatcher queues events and hands them to every sink from background
// workers, so callers never wait on delivery.
type Dispatcher struct {
	sinks  []Sink
	config Config

	queue  chan notification.Event
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once

	// mu orders enqueues before Close so nothing lands after the drain.
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg Config, sinks ...Sink) *Dispatcher {
	// Set defaults
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		sinks:  sinks,
		config: cfg,
		queue:  make(chan notification.Event, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	slog.Info("Notification dispatcher started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize, "sinks", len(sinks))
	return d
}

// Notify implements notification.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, event notification.Event) {
	d.mu.RLock()
	queued := false
	if !d.closed {
		select {
		case d.queue <- event:
			queued = true
		default:
		}
	}
	d.mu.RUnlock()

	// Closed or queue full, deliver inline.
	if !queued {
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(context.Background(), event)
		case <-d.stopCh:
			// Drain what was queued before stopping.
			for {
				select {
				case event := <-d.queue:
					d.deliver(context.Background(), event)
				default:
					slog.Debug("Notification worker stopped", "worker", id)
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event notification.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.config.DeliveryTimeout)
	defer cancel()

	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			slog.Error("Notification delivery failed",
				"sink", sink.Name(),
				"type", event.Type,
				"user_id", event.UserID,
				"request_id", event.Request.ID,
				"error", err,
			)
		}
	}
}

// Close stops the workers after the queue is drained.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.stopCh)
		d.mu.Unlock()
		d.wg.Wait()
	})
}
