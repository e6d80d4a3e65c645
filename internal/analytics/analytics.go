package analytics

import (
	"context"
	"encoding/json"
	"time"

	"kindred-sheets/backend/pkg/logger"
	"kindred-sheets/backend/pkg/resilience"
	"kindred-sheets/backend/shared/redis"
)

// Recorder accepts fire-and-forget named events with a property map.
// Implementations must never block the caller; the chat reply path depends
// on that.
type Recorder interface {
	Record(event string, props map[string]any)
}

// NopRecorder discards all events
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(string, map[string]any) {}

type event struct {
	name  string
	props map[string]any
	at    time.Time
}

// RedisRecorder pushes events onto a redis stream from a single worker
// goroutine behind a buffered channel. When the buffer is full or redis is
// unhealthy, events are dropped with a log line.
type RedisRecorder struct {
	client  *redis.Client
	stream  string
	events  chan event
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
	done    chan struct{}
}

// NewRedisRecorder creates a recorder and starts its worker
func NewRedisRecorder(client *redis.Client, stream string, log *logger.Logger) *RedisRecorder {
	r := &RedisRecorder{
		client:  client,
		stream:  stream,
		events:  make(chan event, 1024),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("analytics-redis"), log),
		log:     log,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record implements Recorder. It never blocks.
func (r *RedisRecorder) Record(name string, props map[string]any) {
	select {
	case r.events <- event{name: name, props: props, at: time.Now()}:
	default:
		r.log.Debug("Analytics buffer full, dropping event", "event", name)
	}
}

// Close stops the worker after draining queued events
func (r *RedisRecorder) Close() {
	close(r.events)
	<-r.done
}

func (r *RedisRecorder) run() {
	defer close(r.done)

	for ev := range r.events {
		props, err := json.Marshal(ev.props)
		if err != nil {
			r.log.Warn("Analytics event not serializable", "event", ev.name, "error", err.Error())
			continue
		}

		err = r.breaker.Execute(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return r.client.AppendStream(ctx, r.stream, map[string]interface{}{
				"event":      ev.name,
				"properties": string(props),
				"timestamp":  ev.at.UnixMilli(),
			})
		})
		if err != nil && err != resilience.ErrCircuitOpen {
			r.log.Warn("Failed to record analytics event", "event", ev.name, "error", err.Error())
		}
	}
}
