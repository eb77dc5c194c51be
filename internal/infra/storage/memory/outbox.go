package memory

import (
	"context"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	"staybook/internal/infra/outbox"
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	attempts    int
	nextAttempt time.Time
	claimedBy   string
	sent        bool
	lastError   string
}

// Outbox stages records in the unit of work found in ctx so they become visible to the
// relay only when the unit commits.
type Outbox struct {
	store *Store
}

func (s *Store) Outbox() *Outbox { return &Outbox{store: s} }

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if u, ok := uow.FromContext(ctx); ok {
		if mu, ok := u.(*unit); ok && mu.store == o.store {
			if err := mu.writable(); err != nil {
				return err
			}
			mu.events = append(mu.events, record)
			return nil
		}
	}
	o.store.mu.Lock()
	o.store.events = append(o.store.events, outboxEntry{record: record})
	o.store.mu.Unlock()
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	select {
	case o.store.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wake fires after commits that added records.
func (o *Outbox) Wake() <-chan struct{} { return o.store.wake }

func (o *Outbox) Claim(_ context.Context, workerID string, limit int) ([]outbox.Message, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []outbox.Message
	for i := range s.events {
		e := &s.events[i]
		if e.sent || e.claimedBy != "" || e.nextAttempt.After(now) {
			continue
		}
		e.claimedBy = workerID
		out = append(out, outbox.Message{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    e.record.Payload,
			OccurredAt: e.record.OccurredAt,
			Aggregate:  e.record.Aggregate,
			Headers:    e.record.Headers,
			Attempts:   e.attempts,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.update(id, func(e *outboxEntry) {
		e.sent = true
		e.claimedBy = ""
	})
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.update(id, func(e *outboxEntry) {
		e.attempts++
		e.nextAttempt = next
		e.lastError = errMsg
		e.claimedBy = ""
	})
	return nil
}

// Pending counts records not yet published.
func (o *Outbox) Pending() int {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	n := 0
	for _, e := range o.store.events {
		if !e.sent {
			n++
		}
	}
	return n
}

func (o *Outbox) update(id string, fn func(*outboxEntry)) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for i := range o.store.events {
		if o.store.events[i].record.ID == id {
			fn(&o.store.events[i])
			return
		}
	}
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ outbox.Store     = (*Outbox)(nil)
)
