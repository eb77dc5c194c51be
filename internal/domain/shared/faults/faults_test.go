package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedErrorsMatchTheirKind(t *testing.T) {
	notFound := NotFound("booking: not found")
	wrapped := fmt.Errorf("confirm: %w", notFound)

	assert.ErrorIs(t, wrapped, notFound)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrState)
	assert.Equal(t, ErrNotFound, KindOf(wrapped))
}

func TestConflictCarriesBookingIDs(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict("dates unavailable", "b-1", "b-2"))

	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"b-1", "b-2"}, conflict.BookingIDs)
	assert.Contains(t, err.Error(), "b-1, b-2")
}

func TestUpstreamKeepsDomainKinds(t *testing.T) {
	assert.Nil(t, Upstream("save", nil))

	state := State("booking: already resolved")
	assert.Same(t, state, Upstream("save", state))

	driver := errors.New("connection reset")
	err := Upstream("bookings: save", driver)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, driver)
	assert.Equal(t, "bookings: save: connection reset", err.Error())
	assert.Nil(t, KindOf(driver))
}
