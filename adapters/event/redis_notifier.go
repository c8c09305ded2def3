package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const analysisChannelPrefix = "cv:analysis:"

func AnalysisChannel(ownerID uuid.UUID) string {
	return analysisChannelPrefix + ownerID.String()
}

type redisNotifier struct {
	rdb    *redis.Client
	logger logger.Logger
}

func NewRedisNotifier(rdb *redis.Client, log logger.Logger) service.AnalysisNotifier {
	return &redisNotifier{rdb: rdb, logger: log}
}

func (n *redisNotifier) Publish(ctx context.Context, ev service.AnalysisEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, AnalysisChannel(ev.OwnerID), raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (n *redisNotifier) Subscribe(ctx context.Context, ownerID uuid.UUID) (<-chan service.AnalysisEvent, func(), error) {
	sub := n.rdb.Subscribe(ctx, AnalysisChannel(ownerID))

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan service.AnalysisEvent, 8)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev service.AnalysisEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					n.logger.Warn("Bad analysis event payload on redis", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
