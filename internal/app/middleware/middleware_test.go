package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/faults"
)

type reserveCommand struct{ key string }

func (reserveCommand) Key() string              { return "test.reserve" }
func (c reserveCommand) IdempotencyKey() string { return c.key }
func (reserveCommand) ResultPrototype() any     { return new(reserveResult) }

type reserveResult struct {
	ID string `json:"id"`
}

type recordStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
	saveErr error
}

func (s *recordStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *recordStore) Save(_ context.Context, rec IdempotencyRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]IdempotencyRecord{}
	}
	s.records[rec.Key] = rec
	return nil
}

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &reserveResult{ID: "bk-1"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	store := &recordStore{}
	next := &countingBus{}
	bus := Idempotency(store, nil, quietLogger())(next)

	first, err := bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
}

func TestIdempotencyKeepsCommittedResultWhenRecordCannotBeSaved(t *testing.T) {
	store := &recordStore{saveErr: errors.New("redis: connection refused")}
	next := &countingBus{}
	bus := Idempotency(store, nil, quietLogger())(next)

	out, err := bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, &reserveResult{ID: "bk-1"}, out)
}

func TestIdempotencyDoesNotStoreUpstreamFailures(t *testing.T) {
	store := &recordStore{}
	next := &countingBus{err: faults.Upstream("db: write", errors.New("timeout"))}
	bus := Idempotency(store, nil, quietLogger())(next)

	_, err := bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	assert.ErrorIs(t, err, faults.ErrUpstream)
	next.err = nil
	_, err = bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	next.err = faults.State("booking: already resolved")
	_, err = bus.Dispatch(context.Background(), reserveCommand{key: "k2"})
	assert.ErrorIs(t, err, faults.ErrState)
	_, err = bus.Dispatch(context.Background(), reserveCommand{key: "k2"})
	assert.ErrorIs(t, err, faults.ErrState)
	assert.Equal(t, 3, next.calls)
}

func TestGuardStopsMessageBeforeHandler(t *testing.T) {
	next := &countingBus{}
	denied := errors.New("denied")
	bus := ChainCommands(next, GuardCommands(func(_ context.Context, msg any) error {
		if msg.(reserveCommand).key == "" {
			return denied
		}
		return nil
	}))

	_, err := bus.Dispatch(context.Background(), reserveCommand{})
	assert.ErrorIs(t, err, denied)
	assert.Zero(t, next.calls)

	_, err = bus.Dispatch(context.Background(), reserveCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

type scriptedUnit struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (u *scriptedUnit) Apartments() domainapartment.Repository { return nil }
func (u *scriptedUnit) Bookings() domainbooking.Repository     { return nil }

func (u *scriptedUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *scriptedUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type scriptedFactory struct{ unit *scriptedUnit }

func (f scriptedFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestTransactionRunsRollbackHooksOnlyWhenAbandoned(t *testing.T) {
	cases := []struct {
		name       string
		handlerErr error
		commitErr  error
		wantHooks  int
	}{
		{name: "committed"},
		{name: "handler failed", handlerErr: faults.Validation("bad input"), wantHooks: 1},
		{name: "commit failed", commitErr: errors.New("write conflict"), wantHooks: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unit := &scriptedUnit{commitErr: tc.commitErr}
			hooks := 0
			next := commandFunc(func(ctx context.Context, _ commands.Command) (any, error) {
				require.True(t, uow.OnRollback(ctx, func(context.Context) { hooks++ }))
				return nil, tc.handlerErr
			})
			_, err := Transaction(scriptedFactory{unit: unit}, nil)(next).Dispatch(context.Background(), reserveCommand{})

			assert.Equal(t, tc.wantHooks, hooks)
			assert.Equal(t, tc.wantHooks == 0, unit.committed)
			assert.Equal(t, tc.wantHooks == 1, unit.rolledBack)
			if tc.wantHooks == 0 {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.False(t, uow.OnRollback(context.Background(), func(context.Context) {}))
}
