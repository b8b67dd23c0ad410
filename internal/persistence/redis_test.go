package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/config"
)

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	// nothing listens on port 1
	client, err := NewRedis(context.Background(), config.RedisConfig{
		Addr:               "127.0.0.1:1",
		KeyPrefix:          "test:session:",
		DialTimeoutSeconds: 1,
	}, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRedisPingWithoutClient(t *testing.T) {
	var r *Redis
	assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisNotConfigured)
}
