package audit

import (
	"encoding/json"
	"time"

	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/redis"
	"github.com/osool/allowance-gateway/pkg/worker"
)

// Event is one audit entry on the stream.
type Event struct {
	Action string                 `json:"action"`
	At     time.Time              `json:"at"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

type PublisherConfig struct {
	Stream     string
	MaxLen     int64
	BufferSize int
	Workers    int
}

// Publisher pushes audit events onto a capped stream. Emit never blocks
// and never returns an error; the ledger must not slow down or fail
// because the audit trail is behind. A full buffer drops the event with
// a warning.
type Publisher struct {
	adapter redis.RedisAdapter
	config  PublisherConfig
	pool    *worker.WorkerManager
}

func NewPublisher(adapter redis.RedisAdapter, config PublisherConfig) *Publisher {
	if config.Stream == "" {
		config.Stream = "audit:events"
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}

	p := &Publisher{
		adapter: adapter,
		config:  config,
	}
	p.pool = worker.NewWorkerManager(config.BufferSize, config.Workers, nil)
	p.pool.SetWorker(p.publish)
	return p
}

// Start launches the background workers. Blocks until the pool exits,
// so callers run it in a goroutine.
func (p *Publisher) Start() error {
	return p.pool.Start()
}

func (p *Publisher) Stop() {
	p.pool.Exit()
}

// Emit queues an event for publishing. Satisfies the service layer's
// audit sink contract.
func (p *Publisher) Emit(action string, fields map[string]interface{}) {
	event := Event{
		Action: action,
		At:     time.Now().UTC(),
		Fields: fields,
	}
	if !p.pool.TryEnqueue(event) {
		logger.Warn("audit buffer full, event dropped", "action", action)
	}
}

func (p *Publisher) publish(workerIndex int, job interface{}) {
	event, ok := job.(Event)
	if !ok {
		return
	}

	data, err := json.Marshal(event.Fields)
	if err != nil {
		logger.Warn("audit event not serializable", "action", event.Action, "error", err)
		return
	}

	values := map[string]interface{}{
		"action": event.Action,
		"at":     event.At.Format(time.RFC3339Nano),
		"data":   string(data),
	}
	if _, err := p.adapter.XAdd(p.config.Stream, values); err != nil {
		logger.Warn("audit publish failed", "action", event.Action, "error", err)
		return
	}

	if p.config.MaxLen > 0 {
		_ = p.adapter.XTrimApprox(p.config.Stream, p.config.MaxLen)
	}
}

// NopSink discards events. Used where an audit trail is not wired, for
// example the migration runner and tests.
type NopSink struct{}

func (NopSink) Emit(string, map[string]interface{}) {}
