// Package cache publishes game action audit records to Redis. Publishing
// is best-effort and asynchronous; the engine never blocks on it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/recallhq/recall/internal/models"
)

const actionChannelPrefix = "recall:actions:"

// Historian streams one record per handled action onto a per-game Redis
// channel. A nil client disables publishing.
type Historian struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewHistorian connects the historian to Redis.
func NewHistorian(client *redis.Client) *Historian {
	return &Historian{
		client: client,
		log:    logrus.WithField("component", "historian"),
	}
}

// Record publishes the action without blocking the caller. Failures are
// logged and dropped; the audit stream is advisory.
func (h *Historian) Record(action models.GameAction) {
	if h == nil || h.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		payload, err := json.Marshal(action)
		if err != nil {
			h.log.WithError(err).Warn("failed to marshal game action")
			return
		}
		channel := actionChannelPrefix + action.GameID.String()
		if err := h.client.Publish(ctx, channel, payload).Err(); err != nil {
			h.log.WithError(err).WithField("channel", channel).Warn("failed to publish game action")
		}
	}()
}

// NewClient builds a Redis client from address settings. Returns nil when
// no address is configured so the historian degrades to a no-op.
func NewClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
