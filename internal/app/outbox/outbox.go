package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain/shared/events"
)

// EventRecord is a serialized domain event waiting to be published.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stores records inside the caller's unit of work. Flush runs after the unit
// commits and tells the relay that new records are available.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
	// Headers are copied onto every record, e.g. a request id.
	Headers map[string]string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	headers := make(map[string]string, len(e.Headers))
	for k, v := range e.Headers {
		headers[k] = v
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    headers,
	}, nil
}

// Recorder is an aggregate that buffers domain events.
type Recorder interface {
	Drain() []events.DomainEvent
}

// RecordDomainEvents drains every aggregate and adds its events to box in order.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...Recorder) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		for _, ev := range agg.Drain() {
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
