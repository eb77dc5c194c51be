package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/go-redis/redis/v8"
)

const keyPrefix = "staybook:"

// NewClient accepts either a redis:// URL or a bare host:port.
func NewClient(ctx context.Context, rawURL string) (*goredis.Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("redis: url is required")
	}
	var opts *goredis.Options
	if strings.Contains(rawURL, "://") {
		parsed, err := goredis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: rawURL}
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func key(parts ...string) string {
	return keyPrefix + strings.Join(parts, ":")
}
