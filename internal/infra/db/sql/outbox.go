package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/infra/outbox"
)

// claimTimeout releases records whose worker died between claim and settle.
const claimTimeout = 2 * time.Minute

// Outbox writes records in the caller's transaction and serves them to the relay.
type Outbox struct {
	store *Store
	now   func() time.Time
}

func (s *Store) Outbox() *Outbox {
	return &Outbox{store: s, now: func() time.Time { return time.Now().UTC() }}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	db := o.store.db.WithContext(ctx)
	if u, ok := o.store.unitFrom(ctx); ok {
		w, err := u.writer(ctx)
		if err != nil {
			return err
		}
		db = w
	}
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := o.now()
	m := outboxModel{
		ID:            record.ID,
		Name:          record.Name,
		Payload:       record.Payload,
		OccurredAt:    record.OccurredAt,
		Aggregate:     record.Aggregate,
		Headers:       string(headers),
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	return translate(db.Create(&m).Error)
}

func (o *Outbox) Flush(context.Context) error {
	select {
	case o.store.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Wake() <-chan struct{} { return o.store.wake }

func (o *Outbox) Claim(ctx context.Context, workerID string, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	now := o.now()
	var rows []outboxModel
	err := o.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("sent_at IS NULL AND next_attempt_at <= ?", now).
			Where("claimed_by = '' OR claimed_by IS NULL OR claimed_at < ?", now.Add(-claimTimeout)).
			Order("occurred_at").
			Limit(limit)
		if o.store.Dialect() == DialectPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		return tx.Model(&outboxModel{}).Where("id IN ?", ids).
			Updates(map[string]any{"claimed_by": workerID, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]outbox.Message, 0, len(rows))
	for _, r := range rows {
		var headers map[string]string
		if r.Headers != "" {
			if err := json.Unmarshal([]byte(r.Headers), &headers); err != nil {
				return nil, err
			}
		}
		out = append(out, outbox.Message{
			ID:         r.ID,
			Name:       r.Name,
			Payload:    r.Payload,
			OccurredAt: r.OccurredAt.UTC(),
			Aggregate:  r.Aggregate,
			Headers:    headers,
			Attempts:   r.Attempts,
		})
	}
	return out, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	err := o.store.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).
		Updates(map[string]any{"sent_at": o.now(), "claimed_by": ""}).Error
	return translate(err)
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	err := o.store.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": next.UTC(),
			"last_error":      errMsg,
			"claimed_by":      "",
		}).Error
	return translate(err)
}

// Pending counts records not yet published.
func (o *Outbox) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := o.store.db.WithContext(ctx).Model(&outboxModel{}).Where("sent_at IS NULL").Count(&n).Error
	return n, translate(err)
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ outbox.Store     = (*Outbox)(nil)
)
