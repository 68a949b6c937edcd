package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mateforge/mateauth/internal/queue"
)

// Config controls queue size and the per-message delivery deadline.
type Config struct {
	BufferSize int
	Timeout    time.Duration
}

type message struct {
	email string
	token string
}

// Dispatcher forwards queued verification messages to a Sender, each under
// its own deadline.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	q       *queue.Queue[message]
	failed  atomic.Uint64
}

func NewDispatcher(sender Sender, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: cfg.Timeout,
	}
	d.q = queue.New(cfg.BufferSize, d.deliver)
	return d
}

func (d *Dispatcher) deliver(m message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.SendVerification(ctx, m.email, m.token); err != nil {
		d.failed.Add(1)
		d.logger.Error("notify.verification.failed", "email", m.email, "err", err)
	}
}

// Enqueue queues a verification message without waiting for delivery and
// reports whether it was accepted. A full or closed queue drops it;
// delivery errors surface only through Failed.
func (d *Dispatcher) Enqueue(email, token string) bool {
	if d == nil {
		return false
	}
	if d.q.TryPush(message{email: email, token: token}) {
		return true
	}
	if !d.q.Closed() {
		d.logger.Warn("notify.verification.dropped", "email", email)
	}
	return false
}

// Close stops accepting messages and delivers what is already queued.
func (d *Dispatcher) Close() {
	if d != nil {
		d.q.Close()
	}
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.q.Dropped()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
