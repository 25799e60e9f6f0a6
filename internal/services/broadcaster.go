package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"pos-relay/models"
	"pos-relay/monitoring"

	"github.com/google/uuid"
)

const DefaultSubscriberBuffer = 16

// Relay receives a copy of every broadcast message, after local delivery.
type Relay interface {
	Relay(ctx context.Context, msg models.Message)
}

// Subscriber is a live event stream handle. Messages arrive on Messages()
// until Done() is closed.
type Subscriber struct {
	id       string
	messages chan models.Message
	done     chan struct{}
	once     sync.Once
}

func (s *Subscriber) ID() string {
	return s.id
}

func (s *Subscriber) Messages() <-chan models.Message {
	return s.messages
}

// Done is closed once the subscriber has been removed from the broadcaster.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// EventBroadcaster fans messages out to every connected subscriber. It
// never waits on a subscriber: a subscriber whose buffer is full is treated
// as stale and removed. Late subscribers get nothing that was sent before
// they subscribed.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int

	relays  []Relay
	monitor *monitoring.Monitor
	logger  *slog.Logger
}

func NewEventBroadcaster(buffer int, monitor *monitoring.Monitor, logger *slog.Logger, relays ...Relay) *EventBroadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
		relays:      relays,
		monitor:     monitor,
		logger:      logger,
	}
}

func (b *EventBroadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:       uuid.NewString(),
		messages: make(chan models.Message, b.buffer),
		done:     make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()

	b.monitor.SetSubscribers(count)
	b.logger.Info("subscriber connected", "subscriberId", sub.id, "subscribers", count)
	return sub
}

// Unsubscribe removes sub. Unknown or already removed handles are ignored.
func (b *EventBroadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	count := len(b.subscribers)
	b.mu.Unlock()

	sub.close()
	if ok {
		b.monitor.SetSubscribers(count)
		b.logger.Info("subscriber disconnected", "subscriberId", sub.id, "subscribers", count)
	}
}

// Broadcast encodes payload once and queues it for every subscriber
// registered at the time of the call. The only error is an encoding failure.
func (b *EventBroadcaster) Broadcast(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	msg := models.Message{Name: name, Data: data}

	b.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(b.subscribers))
	for sub := range b.subscribers {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, sub := range snapshot {
		select {
		case <-sub.done:
			continue
		default:
		}

		select {
		case sub.messages <- msg:
			delivered++
		default:
			dropped++
			b.logger.Warn("subscriber buffer full, dropping stale subscriber", "subscriberId", sub.id, "event", name)
			b.Unsubscribe(sub)
		}
	}

	b.monitor.TrackBroadcast(name, delivered, dropped)
	b.logger.Info("event broadcast", "event", name, "delivered", delivered, "dropped", dropped)

	for _, r := range b.relays {
		r.Relay(ctx, msg)
	}
	return nil
}

func (b *EventBroadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close removes every subscriber, ending their streams.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[*Subscriber]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
	b.monitor.SetSubscribers(0)
}
