// README: Redis pub/sub transport for booking changes, with resync on reconnect.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisBus struct {
	rdb     *redis.Client
	log     *zap.Logger
	backoff time.Duration
}

func NewRedisBus(rdb *redis.Client, log *zap.Logger) *RedisBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBus{rdb: rdb, log: log, backoff: time.Second}
}

func (b *RedisBus) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := b.rdb.Pipeline()
	for _, ch := range channelsFor(c) {
		pipe.Publish(ctx, ch, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish booking change: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed, so a snapshot read taken
// afterwards cannot miss a change. onChange runs on the subscriber goroutine.
// After any dropped connection, onResync is called before the next change is
// delivered; the subscriber must re-read its full state then.
func (b *RedisBus) Subscribe(ctx context.Context, f Filter, onChange func(Change), onResync func()) (func(), error) {
	channels := f.channels()
	if len(channels) == 0 {
		return nil, ErrEmptyFilter
	}
	sub := b.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.loop(ctx, sub, onChange, onResync)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			<-done
		})
	}, nil
}

func (b *RedisBus) loop(ctx context.Context, sub *redis.PubSub, onChange func(Change), onResync func()) {
	gap := false
	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			gap = true
			b.log.Warn("feed subscription dropped", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.backoff):
			}
			continue
		}
		if gap {
			gap = false
			if onResync != nil {
				onResync()
			}
		}
		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		var c Change
		if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
			b.log.Warn("feed payload dropped", zap.String("channel", m.Channel), zap.Error(err))
			continue
		}
		onChange(c)
	}
}
