package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lukechats/retail-backend/pkg/config"
	"github.com/lukechats/retail-backend/pkg/logger"
	"github.com/lukechats/retail-backend/pkg/metrics"
)

// Turn is one completed assistant exchange.
type Turn struct {
	UserID    string
	Message   string
	Reply     string
	Timestamp time.Time
}

type wireTurn struct {
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the transport the recorder hands encoded turns to.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Recorder buffers assistant turns and publishes them off the request path.
// A nil Recorder accepts and discards everything, so callers never branch on
// whether telemetry is configured.
type Recorder struct {
	publisher Publisher
	channel   string
	timeout   time.Duration
	logg      *logger.Logger
	met       *metrics.AssistantMetrics

	queue  chan Turn
	done   chan struct{}
	closed sync.Once

	// mu serialises intake against close(queue); a send racing Close would
	// otherwise panic on the closed channel.
	mu      sync.RWMutex
	closing bool
}

// NewRecorder starts the background worker. The worker keeps its own context;
// a publish in flight is allowed to outlive the request that produced it.
func NewRecorder(cfg config.EventsConfig, publisher Publisher, logg *logger.Logger, met *metrics.AssistantMetrics) *Recorder {
	r := &Recorder{
		publisher: publisher,
		channel:   cfg.Channel,
		timeout:   cfg.PublishTimeout,
		logg:      logg,
		met:       met,
		queue:     make(chan Turn, cfg.BufferSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues the turn without blocking. Turns are dropped when the
// recorder is unconfigured or the buffer is full; drops are logged and counted
// but never surface to the caller.
func (r *Recorder) Record(turn Turn) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closing {
		return
	}
	select {
	case r.queue <- turn:
	default:
		r.met.IncEventDropped()
		r.logg.Warn(context.Background(), "assistant turn dropped, event buffer full")
	}
}

// Close stops intake and drains buffered turns until ctx expires. Turns still
// queued at the deadline are lost.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.closed.Do(func() {
		r.mu.Lock()
		r.closing = true
		close(r.queue)
		r.mu.Unlock()
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for turn := range r.queue {
		r.publish(turn)
	}
}

func (r *Recorder) publish(turn Turn) {
	payload, err := json.Marshal(wireTurn(turn))
	if err != nil {
		r.met.IncEventDropped()
		r.logg.Error(context.Background(), "encode assistant turn", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.publisher.Publish(ctx, r.channel, payload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.met.IncEventDropped()
		r.logg.Error(context.Background(), "publish assistant turn", err)
		return
	}
	r.met.IncEventPublished()
}
