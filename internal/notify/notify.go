// Package notify sends the welcome messages that follow a registration.
//
// FIRE AND FORGET:
// Registration must not wait on, or fail because of, a WhatsApp gateway or
// an SMTP server. Notify only enqueues a job. A small worker pool drains the
// queue in the background, and each channel's error is logged and dropped.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recipient is who a welcome goes to. Phone is already normalised.
type Recipient struct {
	Name  string
	Phone string
	Email string
}

// Channel delivers one kind of message (WhatsApp, email, ...).
type Channel interface {
	Name() string
	Send(ctx context.Context, r Recipient) error
}

// Notifier is what the user service depends on.
type Notifier interface {
	Notify(r Recipient)
}

// sendTimeout bounds a single channel call so a hung gateway can't pin a
// worker forever.
const sendTimeout = 30 * time.Second

// Dispatcher fans each Recipient out to every configured Channel.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
	jobs     chan Recipient

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher starts workers goroutines reading from a queue of size
// queueSize. Call Close on shutdown to drain it.
func NewDispatcher(logger *slog.Logger, workers, queueSize int, channels ...Channel) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &Dispatcher{
		channels: channels,
		logger:   logger,
		jobs:     make(chan Recipient, queueSize),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Notify enqueues r without blocking. A full queue or a closed dispatcher
// drops the job with a warning.
func (d *Dispatcher) Notify(r Recipient) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed",
			slog.String("email", r.Email),
		)
		return
	}

	select {
	case d.jobs <- r:
	default:
		d.logger.Warn("notification dropped, queue full",
			slog.String("email", r.Email),
			slog.Int("queue_size", cap(d.jobs)),
		)
	}
}

// Close stops accepting jobs and waits until queued ones are sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for r := range d.jobs {
		d.deliver(r)
	}
}

// deliver runs every channel for r. One channel failing doesn't stop the others.
func (d *Dispatcher) deliver(r Recipient) {
	for _, ch := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := ch.Send(ctx, r)
		cancel()

		if err != nil {
			d.logger.Error("notification failed",
				slog.String("channel", ch.Name()),
				slog.String("email", r.Email),
				slog.String("error", err.Error()),
			)
			continue
		}
		d.logger.Info("notification sent",
			slog.String("channel", ch.Name()),
			slog.String("email", r.Email),
		)
	}
}

// LogChannel stands in for a channel whose credentials aren't configured.
// It records what would have been sent and always succeeds.
type LogChannel struct {
	name   string
	logger *slog.Logger
}

func NewLogChannel(name string, logger *slog.Logger) *LogChannel {
	return &LogChannel{name: name, logger: logger}
}

func (c *LogChannel) Name() string { return c.name }

func (c *LogChannel) Send(_ context.Context, r Recipient) error {
	c.logger.Debug("notification skipped, channel not configured",
		slog.String("channel", c.name),
		slog.String("phone", r.Phone),
		slog.String("email", r.Email),
	)
	return nil
}
