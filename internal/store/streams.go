package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// AlertStream publishes created alerts to a Redis stream so downstream
// consumers (dashboards, notification workers) can follow them without
// polling PostgreSQL.
type AlertStream struct {
	client *redis.Client
	stream string
}

func NewAlertStream(client *redis.Client, stream string) *AlertStream {
	return &AlertStream{client: client, stream: stream}
}

// Publish appends one alert to the stream. Best-effort: callers treat a
// failure here as non-fatal.
func (s *AlertStream) Publish(ctx context.Context, alert any) (string, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return "", err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":      string(payload),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
}
