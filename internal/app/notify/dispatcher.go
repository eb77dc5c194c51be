package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"staybook/internal/app/policies"
)

var ErrNoBatch = errors.New("notify: no batch in context")

// Batch collects the notifications a command wants sent once its changes are committed.
type Batch struct {
	mu    sync.Mutex
	items []policies.Notification
}

func (b *Batch) Items() []policies.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]policies.Notification(nil), b.items...)
}

type batchKey struct{}

func WithBatch(ctx context.Context) (context.Context, *Batch) {
	b := &Batch{}
	return context.WithValue(ctx, batchKey{}, b), b
}

// Enqueue adds notifications to the batch carried by ctx.
func Enqueue(ctx context.Context, items ...policies.Notification) error {
	b, ok := ctx.Value(batchKey{}).(*Batch)
	if !ok {
		return ErrNoBatch
	}
	b.mu.Lock()
	b.items = append(b.items, items...)
	b.mu.Unlock()
	return nil
}

// Submitter accepts committed notifications for delivery.
type Submitter interface {
	Submit(items []policies.Notification)
}

// Dispatcher delivers notifications on a small worker pool. Each recipient is sent
// independently; failures are logged and never reported back to the caller.
type Dispatcher struct {
	notifier    policies.Notifier
	logger      *slog.Logger
	sendTimeout time.Duration
	queue       chan policies.Notification
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *slog.Logger
}

func NewDispatcher(notifier policies.Notifier, opts Options) *Dispatcher {
	if notifier == nil {
		panic("notify: notifier required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		notifier:    notifier,
		logger:      opts.Logger,
		sendTimeout: opts.SendTimeout,
		queue:       make(chan policies.Notification, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Submit queues items without blocking. When the queue is full the item is dropped and logged.
func (d *Dispatcher) Submit(items []policies.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range items {
		if d.closed {
			d.log().Warn("notification dropped after shutdown", "template", n.Template, "to", n.To)
			continue
		}
		select {
		case d.queue <- n:
		default:
			d.log().Error("notification queue full", "template", n.Template, "to", n.To)
		}
	}
}

// Close stops accepting work and waits for queued notifications to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n policies.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log().Error("notification panicked", "template", n.Template, "to", n.To, "panic", r)
		}
	}()
	if err := d.notifier.Send(ctx, n); err != nil {
		d.log().Error("notification failed", "template", n.Template, "to", n.To, "error", err)
		return
	}
	d.log().Debug("notification sent", "template", n.Template, "to", n.To)
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

var _ Submitter = (*Dispatcher)(nil)
