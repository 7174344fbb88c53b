package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

const DefaultChannel = "dealwatch.alerts"

type RedisSink struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisSink publishes alerts as JSON on a pub/sub channel.
func NewRedisSink(ctx context.Context, log *logger.Logger, addr, channel string) (*RedisSink, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisSink(log, rdb, channel), nil
}

func newRedisSink(log *logger.Logger, rdb *goredis.Client, channel string) *RedisSink {
	return &RedisSink{
		log:     log.With("sink", "RedisAlertSink"),
		rdb:     rdb,
		channel: channel,
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, a deals.Alert) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis alert sink not initialized")
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, raw).Err()
}

// Subscribe forwards alerts published on the sink's channel until ctx ends.
func (s *RedisSink) Subscribe(ctx context.Context, onAlert func(deals.Alert)) error {
	if onAlert == nil {
		return fmt.Errorf("onAlert callback required")
	}
	sub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var a deals.Alert
				if err := json.Unmarshal([]byte(m.Payload), &a); err != nil {
					s.log.Warn("bad alert payload", "error", err)
					continue
				}
				onAlert(a)
			}
		}
	}()
	return nil
}

func (s *RedisSink) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
