// Package notify fans change events out to in-process subscribers and
// watches the shared store for writes made by other processes.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriberBufferSize = 64

// Topics.
const (
	TopicSettings = "settings"
	TopicUsers    = "users"
)

// ProjectTopic is the topic carrying changes to a user's project.
func ProjectTopic(userID string) string {
	return "project:" + userID
}

// Event describes one change to a stored value.
type Event struct {
	Topic string `json:"topic"`
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	At    int64  `json:"at"`
}

// Observer is told about every published event. Metrics hook in here.
type Observer interface {
	RecordEvent(topic, kind string)
}

// Broadcaster is an in-memory pub/sub keyed by topic. Sends never block:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // topic -> subID -> ch
	closed      bool
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
		now:         time.Now,
	}
}

// SetObserver registers o to see every published event.
func (b *Broadcaster) SetObserver(o Observer) {
	b.mu.Lock()
	b.observer = o
	b.mu.Unlock()
}

// Subscribe registers for events on topic. The subscription is removed and
// its channel closed when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (<-chan Event, string) {
	subID := uuid.NewString()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan Event)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "topic", topic, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish sends an event to every subscriber of topic.
func (b *Broadcaster) Publish(topic, kind, key string) {
	event := Event{Topic: topic, Kind: kind, Key: key, At: b.now().UnixMilli()}

	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.observer != nil {
		b.observer.RecordEvent(topic, kind)
	}

	for id, ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "topic", topic, "sub_id", id)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}

	b.logger.Debug("subscriber removed", "topic", topic, "sub_id", subID)
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Broadcaster) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close closes every subscriber channel. Later subscriptions receive an
// already-closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, topic)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
