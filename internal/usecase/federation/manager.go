package federation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nullclaw/internal/domain"
)

// Manager tracks federation peers and drives the heartbeat-miss checker
// loop, the same ticker-plus-mutex-guarded-map shape as a node registry's
// unreachability sweep.
type Manager struct {
	mu     sync.RWMutex
	peers  map[string]*Peer
	cfg    domain.HeartbeatConfig
	logger *slog.Logger
}

// NewManager creates a federation Manager. logger may be nil.
func NewManager(cfg domain.HeartbeatConfig, logger *slog.Logger) *Manager {
	return &Manager{peers: make(map[string]*Peer), cfg: cfg, logger: logger}
}

// Peer returns the tracked Peer for node, creating it in the disconnected
// state if this is the first time node has been seen.
func (m *Manager) Peer(node string) *Peer {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peers[node]
	if !ok {
		p = NewPeer(node, m.cfg)
		m.peers[node] = p
	}
	return p
}

// Peers returns a snapshot of every tracked peer's info, in no particular order.
func (m *Manager) Peers() []domain.PeerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.PeerInfo, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p.Info())
	}
	return out
}

// StartHeartbeatChecker launches a goroutine that applies one missed-interval
// tick to every tracked peer every cfg.IntervalMs, until ctx is cancelled.
func (m *Manager) StartHeartbeatChecker(ctx context.Context) {
	interval := time.Duration(m.cfg.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAll()
			}
		}
	}()
}

func (m *Manager) checkAll() {
	m.mu.RLock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.RUnlock()

	for _, p := range peers {
		before := p.Info().State
		p.CheckMissedHeartbeat()
		if after := p.Info().State; after != before && m.logger != nil {
			m.logger.Warn("peer state changed", "node", p.Info().Node, "from", before, "to", after)
		}
	}
}
