package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/domain/shared/faults"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer matching the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

var kindNames = map[error]string{
	faults.ErrValidation: "validation",
	faults.ErrConflict:   "conflict",
	faults.ErrNotFound:   "not_found",
	faults.ErrState:      "state",
}

// Idempotency replays the stored outcome of a command whose key was seen before.
// Deterministic failures are replayed with their kind; upstream failures are not
// stored so the caller can retry. A command that succeeded keeps its result even when the
// outcome cannot be stored.
func Idempotency(store IdempotencyStore, codec ResultCodec, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, faults.Upstream("idempotency: lookup", err)
			}
			if found {
				if rec.Error != "" {
					return nil, replayError(rec)
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return normalizePrototype(proto), nil
			}

			result, err := next.Dispatch(ctx, cmd)
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				kind, cacheable := kindNames[faults.KindOf(err)]
				if !cacheable {
					return nil, err
				}
				record.Error = err.Error()
				record.ErrorKind = kind
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					logger.ErrorContext(ctx, "idempotency record not encoded", "command", cmd.Key(), "key", key, "error", encErr)
					return result, nil
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				logger.ErrorContext(ctx, "idempotency record not saved", "command", cmd.Key(), "key", key, "error", saveErr)
			}
			return result, nil
		})
	}
}

func replayError(rec IdempotencyRecord) error {
	for kind, name := range kindNames {
		if name != rec.ErrorKind {
			continue
		}
		if kind == faults.ErrConflict {
			return faults.Conflict(rec.Error)
		}
		return &faults.Error{Kind: kind, Msg: rec.Error}
	}
	return errors.New(rec.Error)
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
