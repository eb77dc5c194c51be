package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/domain/shared/faults"
)

const (
	colApartments    = "apartments"
	colSeasonalRates = "seasonal_rates"
	colBookings      = "bookings"
	colLocks         = "apartment_locks"
	colOutbox        = "outbox"
	colIdempotency   = "idempotency"
	colOperators     = "operators"
	colSessions      = "sessions"
	colLeases        = "leases"
)

// writeConflictCode is returned when two transactions touch the same document.
const writeConflictCode = 112

type Client struct {
	DB *mongo.Database
}

// New connects and pings. Transactions need a replica set, so a standalone server is
// rejected at the first Begin rather than here.
func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colApartments: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSeasonalRates: {
			{Keys: bson.D{{Key: "apartment_id", Value: 1}, {Key: "week_start", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colBookings: {
			{Keys: bson.D{{Key: "apartment_id", Value: 1}, {Key: "status", Value: 1}, {Key: "start_date", Value: 1}}},
		},
		colOutbox: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		},
		colIdempotency: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		colOperators: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSessions: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the application's error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if faults.KindOf(err) != nil {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		return faults.Conflict("mongo: duplicate key")
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == writeConflictCode || cmdErr.HasErrorLabel("TransientTransactionError")) {
		return faults.Conflict("mongo: concurrent transaction")
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) && writeErr.HasErrorCode(writeConflictCode) {
		return faults.Conflict("mongo: concurrent transaction")
	}
	return faults.Upstream("mongo", err)
}
