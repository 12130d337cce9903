package notify

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/inkwell/internal/repository"
)

// DefaultPollInterval matches how often open editors used to re-read storage.
const DefaultPollInterval = 5 * time.Second

// Reader is the read side of the key-value store.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Publisher receives change events.
type Publisher interface {
	Publish(topic, kind, key string)
}

type watch struct {
	topic string
	seen  bool
	sum   [sha256.Size]byte
}

// Poller re-reads watched keys on an interval and publishes when a value
// changed since the last look. It catches writes made by other processes
// sharing the same database file.
type Poller struct {
	store     Reader
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

// NewPoller creates a Poller.
func NewPoller(store Reader, publisher Publisher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "poller"),
		watches:   make(map[string]*watch),
	}
}

// Watch adds key to the set of polled keys. Changes are published on topic.
func (p *Poller) Watch(key, topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.watches[key]; ok {
		return
	}
	p.watches[key] = &watch{topic: topic}
}

// Start runs RunOnce immediately and then on every tick until ctx is done.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("poller started", slog.Duration("interval", interval))

	if err := p.RunOnce(ctx); err != nil {
		p.logger.Error("poll cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Error("poll cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce checks every watched key once. The first observation of a key
// only records its value; later differences are published with kind
// "external_change". A key that disappears is published as "external_delete".
func (p *Poller) RunOnce(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for key, w := range p.watches {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := p.store.Get(ctx, key)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if w.seen && w.sum != ([sha256.Size]byte{}) {
				p.publisher.Publish(w.topic, "external_delete", key)
			}
			w.seen = true
			w.sum = [sha256.Size]byte{}
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("polling %s: %w", key, err))
			continue
		}

		sum := sha256.Sum256(data)
		if w.seen && sum != w.sum {
			p.publisher.Publish(w.topic, "external_change", key)
		}
		w.seen = true
		w.sum = sum
	}
	return errors.Join(errs...)
}
