package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/campuskit/attendance-service/internal/utils"
)

// RedisNotifier publishes every event onto one Redis channel per topic
// (prefix + "." + topic) so multiple service replicas all feed the same
// subscriber pool.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = "attend"
	}
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) channel(topic string) string {
	return n.prefix + "." + topic
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		utils.Logger.WithError(err).Warnf("realtime: failed to encode event for topic %s", ev.Topic)
		return
	}
	if err := n.client.Publish(ctx, n.channel(ev.Topic), payload).Err(); err != nil {
		// Best-effort: clients recover state through the read endpoints.
		utils.Logger.WithError(err).Warnf("realtime: failed to publish %s for entity %s", ev.Topic, ev.EntityID)
	}
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := n.client.PSubscribe(ctx, n.prefix+".*")
	// Force the subscription to be established before we report success.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					utils.Logger.WithError(err).Warn("realtime: dropping malformed event payload")
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}
