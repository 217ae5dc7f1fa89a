package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/warp/seating-engine/seating"
)

// RedisPublisher publishes seating events on "<prefix>:<projectID>" so that
// other server instances can relay them to their own websocket clients.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "seating"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

var _ seating.Notifier = (*RedisPublisher)(nil)

// Channel returns the pub/sub channel of a project.
func (p *RedisPublisher) Channel(projectID seating.ProjectID) string {
	return p.prefix + ":" + string(projectID)
}

func (p *RedisPublisher) Publish(ctx context.Context, projectID seating.ProjectID, event string, payload any) error {
	body, err := json.Marshal(newMessage(projectID, event, payload))
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if err := p.client.Publish(ctx, p.Channel(projectID), body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", event, err)
	}
	return nil
}

// Relay subscribes to every project channel and hands each message to the
// hub until ctx is canceled. While a relay runs, the engine must publish
// through Redis only, or local clients see every event twice.
func (p *RedisPublisher) Relay(ctx context.Context, hub *Hub) error {
	sub := p.client.PSubscribe(ctx, p.prefix+":*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				hub.logger.Warn().Err(err).Str("channel", m.Channel).Msg("skipping malformed seating event")
				continue
			}
			_ = hub.Publish(ctx, seating.ProjectID(msg.ProjectID), msg.Type, msg.Payload)
		}
	}
}

// Fanout publishes to every notifier and joins their errors.
type Fanout []seating.Notifier

var _ seating.Notifier = Fanout(nil)

func (f Fanout) Publish(ctx context.Context, projectID seating.ProjectID, event string, payload any) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, projectID, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
