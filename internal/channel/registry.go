// Package channel keeps the chat bridges the chef is reachable through.
package channel

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
)

// Registry manages a set of chat bridges.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	running  sync.WaitGroup
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel, replacing any with the same ID.
func (r *Registry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.channels))
}

// Status returns the status of every channel, sorted by ID. Channels that
// do not report a status are assumed to be running.
func (r *Registry) Status() []domain.ChannelStatus {
	ids := r.List()
	statuses := make([]domain.ChannelStatus, 0, len(ids))
	for _, id := range ids {
		ch, ok := r.Get(id)
		if !ok {
			continue
		}
		if sc, ok := ch.(interface{ Status() domain.ChannelStatus }); ok {
			statuses = append(statuses, sc.Status())
			continue
		}
		statuses = append(statuses, domain.ChannelStatus{ChannelID: id, Running: true})
	}
	return statuses
}

// StartAll starts every channel on its own goroutine, since Start blocks
// for the life of the connection. Errors are logged.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("starting channel")
		r.running.Add(1)
		go func() {
			defer r.running.Done()
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Str("channel", id).Msg("channel exited with error")
			}
		}()
	}
}

// StopAll stops every channel and waits for their Start calls to return or
// ctx to end.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("stopping channel")
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", id).Msg("failed to stop channel")
		}
	}
	r.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn().Msg("channels did not stop in time")
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
