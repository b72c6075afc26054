package storage

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store backed by a Redis key space. Watch rides Redis
// keyspace notifications (`notify-keyspace-events KEA` must be enabled
// server-side), demonstrating the "at-least-once" watch contract over
// a real network boundary instead of an in-process channel.
type Redis struct {
	client *redis.Client
	codec  Codec
	prefix string
}

// NewRedis returns a Redis-backed Store. prefix namespaces every key
// (e.g. by replica or tenant) so one Redis instance can serve several
// independent syncdb replicas.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, codec: DefaultCodec, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) (any, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errKeyNotFound("Get", key)
	}
	if err != nil {
		return nil, &Error{Op: "Get", Key: key, Msg: err.Error()}
	}
	var v any
	if err := r.codec.Unmarshal(raw, &v); err != nil {
		return nil, &Error{Op: "Get", Key: key, Msg: err.Error()}
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := r.codec.Marshal(value)
	if err != nil {
		return &Error{Op: "Set", Key: key, Msg: err.Error()}
	}
	if err := r.client.Set(ctx, r.key(key), raw, 0).Err(); err != nil {
		return &Error{Op: "Set", Key: key, Msg: err.Error()}
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return &Error{Op: "Delete", Key: key, Msg: err.Error()}
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return &Error{Op: "Clear", Msg: err.Error()}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return &Error{Op: "Clear", Msg: err.Error()}
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return nil, &Error{Op: "Keys", Msg: err.Error()}
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k[len(r.prefix):]
	}
	return out, nil
}

// Watch subscribes to keyspace notifications for key and decodes each
// published event's current value. The returned channel closes when
// ctx is canceled.
func (r *Redis) Watch(ctx context.Context, key string) (<-chan any, error) {
	pattern := "__keyspace@*__:" + r.key(key)
	sub := r.client.PSubscribe(ctx, pattern)
	out := make(chan any, 1)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == "del" || msg.Payload == "expired" {
					select {
					case out <- nil:
					default:
					}
					continue
				}
				v, err := r.Get(ctx, key)
				if err != nil {
					continue
				}
				select {
				case out <- v:
				default:
				}
			}
		}
	}()
	return out, nil
}
