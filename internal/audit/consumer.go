package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/redis"
)

type ConsumerConfig struct {
	Stream            string
	Group             string
	Consumer          string
	PollInterval      time.Duration
	BatchSize         int64
	VisibilityTimeout time.Duration
}

// EventHandler processes one event. A nil return acknowledges the
// message; an error leaves it pending for redelivery.
type EventHandler func(ctx context.Context, id string, event Event) error

// Consumer drains the audit stream through a consumer group. Entries
// left pending past the visibility timeout (a crashed reader) are
// reclaimed and retried.
type Consumer struct {
	adapter redis.RedisAdapter
	config  ConsumerConfig
}

func NewConsumer(adapter redis.RedisAdapter, config ConsumerConfig) (*Consumer, error) {
	if config.Stream == "" {
		config.Stream = "audit:events"
	}
	if config.Group == "" {
		config.Group = "audit-writers"
	}
	if config.Consumer == "" {
		config.Consumer = "auditor-1"
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 30 * time.Second
	}

	c := &Consumer{
		adapter: adapter,
		config:  config,
	}
	if err := adapter.XGroupCreateMkStream(config.Stream, config.Group, "0"); err != nil {
		// BUSYGROUP means the group survives from an earlier run.
		if !isBusyGroup(err) {
			return nil, err
		}
	}
	return c, nil
}

// Run polls until ctx is done.
func (c *Consumer) Run(ctx context.Context, handler EventHandler) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.readNew(ctx, handler)
			c.claimStuck(ctx, handler)
		}
	}
}

func (c *Consumer) readNew(ctx context.Context, handler EventHandler) {
	messages, err := c.adapter.XReadGroup(
		c.config.Group,
		c.config.Consumer,
		c.config.Stream,
		">",
		c.config.BatchSize,
	)
	if err != nil {
		if err != redis.NilError {
			logger.Warn("audit stream read failed", "error", err)
		}
		return
	}
	c.dispatch(ctx, handler, messages)
}

func (c *Consumer) claimStuck(ctx context.Context, handler EventHandler) {
	pending, err := c.adapter.XPending(c.config.Stream, c.config.Group)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := c.adapter.XPendingExt(c.config.Stream, c.config.Group, "-", "+", c.config.BatchSize)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var ids []string
	for _, p := range pendingExt {
		if p.Idle >= c.config.VisibilityTimeout {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	messages, err := c.adapter.XClaim(c.config.Stream, c.config.Group, c.config.Consumer, c.config.VisibilityTimeout, ids...)
	if err != nil {
		return
	}
	c.dispatch(ctx, handler, messages)
}

func (c *Consumer) dispatch(ctx context.Context, handler EventHandler, messages []redis.StreamMessage) {
	for _, msg := range messages {
		event := decodeEvent(msg)
		if err := handler(ctx, msg.ID, event); err != nil {
			logger.Warn("audit event handling failed", "id", msg.ID, "error", err)
			continue
		}
		if err := c.adapter.XAck(c.config.Stream, c.config.Group, msg.ID); err != nil {
			logger.Warn("audit ack failed", "id", msg.ID, "error", err)
		}
	}
}

func decodeEvent(msg redis.StreamMessage) Event {
	var event Event
	if action, ok := msg.Values["action"].(string); ok {
		event.Action = action
	}
	if at, ok := msg.Values["at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			event.At = t
		}
	}
	if data, ok := msg.Values["data"].(string); ok && data != "" {
		_ = json.Unmarshal([]byte(data), &event.Fields)
	}
	return event
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
