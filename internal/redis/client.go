package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	talksCacheKey   = "talkvote:talks"
	rateLimitPrefix = "talkvote:ratelimit:"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// EventChannel is the pub/sub channel live voting events are fanned out on.
func EventChannel(topic string) string {
	return fmt.Sprintf("talkvote:events:%s", topic)
}

func TalksCacheKey() string {
	return talksCacheKey
}

func RateLimitKey(scope, subject string) string {
	return rateLimitPrefix + scope + ":" + subject
}
