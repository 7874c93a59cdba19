package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/spiritfit/utils"
)

// DefaultChannel is the Redis channel events travel on.
const DefaultChannel = "spiritfit:realtime"

// RedisBus publishes through Redis so every instance's hub sees every event.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

// NewRedisBus wires hub to Redis. Run Forward to start receiving.
func NewRedisBus(rdb *redis.Client, channel string, hub *Hub) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{rdb: rdb, channel: channel, hub: hub}
}

// Publish implements Publisher.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Forward relays Redis messages into the local hub until ctx is done.
func (b *RedisBus) Forward(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				utils.Sugar.Warnw("realtime: bad payload", "err", err)
				continue
			}
			b.hub.Broadcast(ev)
		}
	}
}

// NewPublisher returns a Redis-backed publisher when rdb is set, else the hub itself.
// The caller starts forwarding in a goroutine when the returned bus is non-nil.
func NewPublisher(rdb *redis.Client, hub *Hub) (Publisher, *RedisBus) {
	if rdb == nil {
		return hub, nil
	}
	bus := NewRedisBus(rdb, DefaultChannel, hub)
	return bus, bus
}
