package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	remindersapp "staybook/internal/app/handlers/reminders"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(time.UTC, nil)
	assert.Error(t, s.Add("broken", "every morning", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("sweep", "0 9 * * *", func(context.Context) error { return nil }))
	assert.Equal(t, 1, s.Entries())
}

func TestReminderSweepDispatches(t *testing.T) {
	bus := commands.NewInMemoryBus()
	var got remindersapp.RunSweepCommand
	calls := 0
	commands.RegisterHandler[remindersapp.RunSweepCommand, *remindersapp.SweepResult](bus, commands.HandlerFunc[remindersapp.RunSweepCommand, *remindersapp.SweepResult](
		func(_ context.Context, cmd remindersapp.RunSweepCommand) (*remindersapp.SweepResult, error) {
			calls++
			got = cmd
			return &remindersapp.SweepResult{Day: "2026-01-03"}, nil
		}))

	require.NoError(t, ReminderSweep(bus, nil)(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Empty(t, got.Day)
}

func TestStopReturnsWhenIdle(t *testing.T) {
	s := New(nil, nil)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
