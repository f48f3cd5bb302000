package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"picklist_converter/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	convertTaskRetention = 24 * time.Hour
	convertTaskMaxRetry  = 3
)

type Client struct {
	client *asynq.Client
	queue  string
}

// ConversionQueue hands picklist ids to the background worker.
type ConversionQueue interface {
	EnqueueConvert(ctx context.Context, picklistIDs []int64, requestedBy string) (string, error)
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueConvert queues one conversion batch and returns the task id.
func (c *Client) EnqueueConvert(ctx context.Context, picklistIDs []int64, requestedBy string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("conversion queue not configured")
	}

	task, err := NewConvertPicklistsTask(ConvertPicklistsPayload{
		PicklistIDs: picklistIDs,
		RequestedBy: requestedBy,
	})
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(convertTaskMaxRetry),
		asynq.Retention(convertTaskRetention),
	)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
