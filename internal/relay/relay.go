// Package relay mirrors broadcast events to external pub/sub services so
// displays that are not connected to the event stream can still react to
// payments. Relays are best effort: failures are logged and counted, never
// reported back to the payer.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"pos-relay/models"
	"pos-relay/monitoring"
	"pos-relay/utils"
)

// Publisher sends one event to an external service.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg models.Message) error
}

// Envelope is the JSON document relays publish for every event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(msg models.Message) Envelope {
	return Envelope{Event: msg.Name, Data: json.RawMessage(msg.Data)}
}

type guardedPublisher struct {
	publisher Publisher
	breaker   *utils.CircuitBreaker
}

type Options struct {
	Timeout        time.Duration
	MaxFailures    int
	CircuitTimeout time.Duration
}

// Dispatcher publishes each message to all publishers in the background,
// one goroutine per publisher, each call bounded by Options.Timeout and
// guarded by its own circuit breaker.
type Dispatcher struct {
	publishers []guardedPublisher
	timeout    time.Duration
	monitor    *monitoring.Monitor
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(opts Options, monitor *monitoring.Monitor, logger *slog.Logger, publishers ...Publisher) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		timeout: opts.Timeout,
		monitor: monitor,
		logger:  logger,
	}
	for _, p := range publishers {
		d.publishers = append(d.publishers, guardedPublisher{
			publisher: p,
			breaker:   utils.NewCircuitBreaker(p.Name(), uint32(opts.MaxFailures), opts.CircuitTimeout),
		})
	}
	return d
}

func (d *Dispatcher) Len() int {
	return len(d.publishers)
}

// Relay returns immediately; publishing continues after the caller's
// request has finished. Messages relayed after Close are dropped.
func (d *Dispatcher) Relay(ctx context.Context, msg models.Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("relay skipped, dispatcher closed", "event", msg.Name)
		return
	}
	d.wg.Add(len(d.publishers))
	d.mu.Unlock()

	base := context.WithoutCancel(ctx)
	for _, gp := range d.publishers {
		go func(gp guardedPublisher) {
			defer d.wg.Done()
			d.publish(base, gp, msg)
		}(gp)
	}
}

func (d *Dispatcher) publish(ctx context.Context, gp guardedPublisher, msg models.Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	name := gp.publisher.Name()
	err := gp.breaker.Execute(ctx, func(ctx context.Context) error {
		return gp.publisher.Publish(ctx, msg)
	})
	if err != nil {
		d.monitor.TrackRelay(name, "error")
		d.logger.Error("relay publish failed", "relay", name, "event", msg.Name, "circuit", gp.breaker.State().String(), "error", err)
		return
	}

	d.monitor.TrackRelay(name, "ok")
	d.logger.Debug("relay published", "relay", name, "event", msg.Name)
}

// Wait blocks until every in-flight publish has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting new messages and waits for in-flight publishes.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
