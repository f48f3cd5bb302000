package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerConfig struct {
	redisURL string
	queue    string
}

func (c schedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c schedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c schedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c schedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(schedulerConfig{})
	require.Error(t, err)
}

func TestEnqueueConvert(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(schedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "conversions"})
	require.NoError(t, err)
	defer client.Close()

	id, err := client.EnqueueConvert(context.Background(), []int64{1, 2, 3}, "ops")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pending, err := mr.List("asynq:{conversions}:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, pending)
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	opt, err = redisClientOpt("redis://localhost:6379", false)
	require.NoError(t, err)
	assert.Nil(t, opt.TLSConfig)
}
