package dispatch

import (
	"log/slog"
	"slices"
	"sync"

	"nullclaw/internal/domain"
)

// ChannelRegistry provides name-based lookup for connected channel transports.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
}

// NewChannelRegistry builds a registry from the given channel slice.
func NewChannelRegistry(channels []domain.Channel, logger *slog.Logger) *ChannelRegistry {
	m := make(map[string]domain.Channel, len(channels))
	for _, ch := range channels {
		if _, exists := m[ch.Name()]; exists && logger != nil {
			logger.Warn("duplicate channel name", "name", ch.Name())
		}
		m[ch.Name()] = ch
	}
	return &ChannelRegistry{channels: m}
}

// Get retrieves a channel by exact name. Returns ErrChannelNotFound if absent.
func (r *ChannelRegistry) Get(name string) (domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	if !ok {
		return nil, domain.NewSubSystemError("dispatch", "ChannelRegistry.Get", domain.ErrChannelNotFound, name)
	}
	return ch, nil
}

// Register adds or replaces a channel transport.
func (r *ChannelRegistry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Name()] = ch
}

// List returns all registered channel names sorted alphabetically.
func (r *ChannelRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
