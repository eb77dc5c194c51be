package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"

	claimTimeout = 2 * time.Minute
)

// Outbox inserts records in the caller's session and hands them to the relay.
type Outbox struct {
	col  *mongo.Collection
	wake chan struct{}
	now  func() time.Time
}

func (s *Store) Outbox() *Outbox {
	return &Outbox{col: s.db.Collection(colOutbox), wake: s.wake, now: func() time.Time { return time.Now().UTC() }}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if err := writable(ctx); err != nil {
		return err
	}
	now := o.now()
	doc := eventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt.UTC(),
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	_, err := o.col.InsertOne(ctx, doc)
	return translate(err)
}

func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Wake() <-chan struct{} { return o.wake }

type eventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
	CreatedAt   time.Time         `bson:"created_at"`
}

// Claim takes up to limit due records one at a time, so concurrent relays never share one.
func (o *Outbox) Claim(ctx context.Context, workerID string, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	now := o.now()
	filter := bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{stateNew, stateFailed}}, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"state": stateClaimed, "claimed_at": bson.M{"$lt": now.Add(-claimTimeout)}},
	}}
	update := bson.M{"$set": bson.M{"state": stateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "occurred_at", Value: 1}})
	var out []outbox.Message
	for len(out) < limit {
		var doc eventDocument
		err := o.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return out, translate(err)
		}
		out = append(out, outbox.Message{
			ID:         doc.ID,
			Name:       doc.Name,
			Payload:    doc.Payload,
			OccurredAt: doc.OccurredAt.UTC(),
			Aggregate:  doc.Aggregate,
			Headers:    doc.Headers,
			Attempts:   doc.Attempts,
		})
	}
	return out, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	_, err := o.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": stateSent, "sent_at": o.now()}})
	return translate(err)
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           stateFailed,
			"next_attempt_at": next.UTC(),
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := o.col.UpdateByID(ctx, id, update)
	return translate(err)
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ outbox.Store     = (*Outbox)(nil)
)
