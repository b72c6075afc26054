package hub

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Polqt/syncdb/storage"
)

// Bridge mirrors a Hub's publishes onto a Redis channel and replays
// messages published by other processes back into the local Hub, so
// several syncdbd instances behind a load balancer can share one
// logical topic (e.g. the conflicts stream for a document editable
// from more than one backend process).
type Bridge[T any] struct {
	hub     *Hub[T]
	client  *redis.Client
	channel string
	codec   storage.Codec
	log     *zap.Logger
}

// NewBridge wires hub to a Redis pub/sub channel. Values published
// locally are marshaled with codec and published to channel; values
// received on channel are unmarshaled and republished into hub so
// local subscribers see them alongside local publishes.
func NewBridge[T any](hub *Hub[T], client *redis.Client, channel string, codec storage.Codec, log *zap.Logger) *Bridge[T] {
	if codec == nil {
		codec = storage.DefaultCodec
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge[T]{hub: hub, client: client, channel: channel, codec: codec, log: log}
}

// Publish marshals v and publishes it to the shared Redis channel.
// Local subscribers are notified separately by Run's receive loop
// once Redis echoes the message back, so every process (including
// this one) observes the same delivery order.
func (b *Bridge[T]) Publish(ctx context.Context, v T) error {
	raw, err := b.codec.Marshal(v)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

// Run subscribes to the Redis channel and republishes every message
// into the local Hub until ctx is canceled.
func (b *Bridge[T]) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var v T
			if err := b.codec.Unmarshal([]byte(msg.Payload), &v); err != nil {
				b.log.Warn("bridge: dropping unparseable message", zap.Error(err))
				continue
			}
			b.hub.Publish(v)
		}
	}
}
