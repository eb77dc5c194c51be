package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/middleware"
	domainauth "staybook/internal/domain/auth"
)

// testClient connects to STAYBOOK_TEST_REDIS_URL; the tests skip without it.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	url := os.Getenv("STAYBOOK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STAYBOOK_TEST_REDIS_URL not set")
	}
	client, err := NewClient(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKeyIsPrefixed(t *testing.T) {
	assert.Equal(t, "staybook:lease:reminders:2026-01-03", key("lease", "reminders:2026-01-03"))
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(context.Background(), " ")
	assert.Error(t, err)
}

func TestLeaseIsExclusive(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	a, b := NewLease(client, "a"), NewLease(client, "b")

	ok, err := a.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyAndSessionRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	idem := NewIdempotencyStore(client, time.Minute)
	k := "booking.create:" + uuid.NewString()
	_, found, err := idem.Get(ctx, k)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, idem.Save(ctx, middleware.IdempotencyRecord{Key: k, Payload: []byte(`{"ok":true}`), OccurredAt: time.Now().UTC()}))
	rec, found, err := idem.Get(ctx, k)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Payload))

	sessions := NewSessionStore(client)
	s, err := domainauth.NewSession(domainauth.CreateSessionParams{Token: domainauth.Token(uuid.NewString()), UserID: "op-1", TTL: time.Minute})
	require.NoError(t, err)
	require.NoError(t, sessions.Save(ctx, s))
	got, err := sessions.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)
	require.NoError(t, sessions.Delete(ctx, s.Token))
	_, err = sessions.Get(ctx, s.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
