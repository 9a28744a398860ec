package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChannelPrefix namespaces event channels on Redis pub/sub.
const ChannelPrefix = "events:"

// Channel returns the pub/sub channel carrying events of the given type.
func Channel(eventType string) string {
	return ChannelPrefix + eventType
}

// RedisPublisher broadcasts envelopes on Redis pub/sub for in-cluster
// consumers such as the receipt worker.
type RedisPublisher struct {
	client   *redis.Client
	producer string
}

func NewRedisPublisher(client *redis.Client, producer string) *RedisPublisher {
	return &RedisPublisher{client: client, producer: producer}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	if p.client == nil {
		return
	}
	env, err := NewEnvelope(p.producer, e)
	if err != nil {
		log.Error().Err(err).Str("event_type", e.Type).Msg("Failed to encode event")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event_type", e.Type).Msg("Failed to encode envelope")
		return
	}
	if err := p.client.Publish(context.WithoutCancel(ctx), Channel(e.Type), data).Err(); err != nil {
		log.Error().Err(err).Str("channel", Channel(e.Type)).Msg("Redis publish failed")
	}
}
