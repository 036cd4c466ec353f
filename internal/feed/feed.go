package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed publishes the simulation's public happenings to Redis Streams so
// external observers can tail a run without touching the process. One stream
// per topic.
type Feed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// Item is one feed entry.
type Item struct {
	ID      string    `json:"id,omitempty"`
	Topic   string    `json:"topic"` // "actions", "chats", "narrations"
	Agent   string    `json:"agent,omitempty"`
	Text    string    `json:"text"`
	SimTime time.Time `json:"sim_time"`
}

// Stream topics published by the engine.
const (
	TopicActions    = "actions"
	TopicChats      = "chats"
	TopicNarrations = "narrations"
)

const streamPrefix = "reverie:feed:"

// New connects to Redis and verifies the connection.
func New(redisURL string, logger *zap.Logger) (*Feed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Feed{rdb: rdb, logger: logger}, nil
}

// Publish appends an item to its topic stream.
func (f *Feed) Publish(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	stream := streamPrefix + item.Topic
	_, err = f.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	f.logger.Debug("published feed item",
		zap.String("topic", item.Topic),
		zap.String("agent", item.Agent))
	return nil
}

// Subscribe tails a topic stream from now on. Returns a channel that emits
// items; cancel the context to stop.
func (f *Feed) Subscribe(ctx context.Context, topic string) <-chan Item {
	ch := make(chan Item, 16)
	stream := streamPrefix + topic

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := f.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var item Item
					if json.Unmarshal([]byte(data), &item) == nil {
						item.ID = msg.ID
						ch <- item
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (f *Feed) Close() error {
	return f.rdb.Close()
}
