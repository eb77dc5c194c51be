package s3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresEndpointAndBucket(t *testing.T) {
	_, err := NewClient(Config{Bucket: "b"}, nil)
	assert.Error(t, err)
	_, err = NewClient(Config{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err)
}

func TestURLIsPresignedAgainstPublicEndpoint(t *testing.T) {
	c, err := NewClient(Config{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "https://files.example.com",
		AccessKey:      "key",
		SecretKey:      "secret",
		Bucket:         "contracts",
		URLTTL:         time.Hour,
	}, nil)
	require.NoError(t, err)

	raw, err := c.URL(context.Background(), "contracts/bk-1-confirmed.pdf")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "files.example.com", u.Host)
	assert.Equal(t, "/contracts/contracts/bk-1-confirmed.pdf", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestParseEndpointStripsScheme(t *testing.T) {
	assert.Equal(t, "minio:9000", parseEndpoint("http://minio:9000"))
	assert.Equal(t, "minio:9000", parseEndpoint("minio:9000"))
}
