// Package federation implements the cross-node handshake and heartbeat
// state machine: a peer connects, degrades under missed heartbeats, and
// recovers or goes offline per a fixed set of valid transitions.
package federation

import (
	"sync"
	"time"

	"nullclaw/internal/domain"
)

// transitions is the exhaustive set of valid (from, to) edges. Any pair not
// present here, including self-transitions, is forbidden.
var transitions = map[domain.PeerState]map[domain.PeerState]bool{
	domain.PeerDisconnected:     {domain.PeerHandshakePending: true},
	domain.PeerHandshakePending: {domain.PeerConnected: true, domain.PeerDisconnected: true},
	domain.PeerConnected:        {domain.PeerDegraded: true, domain.PeerDisconnected: true},
	domain.PeerDegraded:         {domain.PeerConnected: true, domain.PeerOffline: true, domain.PeerDisconnected: true},
	domain.PeerOffline:          {domain.PeerDisconnected: true},
}

// CanTransitionTo reports whether from -> to is a valid federation state
// transition. Self-transitions are always invalid.
func CanTransitionTo(from, to domain.PeerState) bool {
	if from == to {
		return false
	}
	return transitions[from][to]
}

// Peer tracks one remote node's federation lifecycle: connection state,
// heartbeat bookkeeping, and the last sequence number received from it.
type Peer struct {
	mu   sync.Mutex
	info domain.PeerInfo
	cfg  domain.HeartbeatConfig
	now  func() time.Time
}

// NewPeer creates a Peer in the disconnected state.
func NewPeer(node string, cfg domain.HeartbeatConfig) *Peer {
	return &Peer{
		info: domain.PeerInfo{Node: node, State: domain.PeerDisconnected},
		cfg:  cfg,
		now:  time.Now,
	}
}

// Info returns a snapshot of the peer's current tracking state.
func (p *Peer) Info() domain.PeerInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// TransitionTo attempts to move the peer to `to`, rejecting any transition
// not in the valid edge set.
func (p *Peer) TransitionTo(to domain.PeerState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !CanTransitionTo(p.info.State, to) {
		return domain.NewSubSystemError("federation", "Peer.TransitionTo", domain.ErrInvalidPeerTransition,
			string(p.info.State)+" -> "+string(to))
	}
	if to == domain.PeerConnected {
		p.info.ConnectedAt = p.now().UnixMilli()
	}
	p.info.State = to
	return nil
}

// Handshake evaluates an initiator's request against this peer's schema
// version and returns the responder's verdict.
func (p *Peer) Handshake(req domain.HandshakeRequest) domain.HandshakeResponse {
	p.mu.Lock()
	lastSeen := p.info.LastReceivedSequence
	p.mu.Unlock()

	resp := domain.HandshakeResponse{
		SourceNode:       p.info.Node,
		SchemaVersion:    domain.SchemaVersion,
		Timestamp:        p.now().UnixMilli(),
		LastSeenSequence: lastSeen,
	}
	if req.SchemaVersion != domain.SchemaVersion {
		resp.Result = domain.HandshakeVersionMismatch
		resp.Reason = "schema version mismatch"
		return resp
	}
	resp.Result = domain.HandshakeAccepted
	return resp
}

// ReceiveHeartbeat records a heartbeat. Receiving any heartbeat while
// degraded moves the peer back to connected and resets MissedHeartbeats.
func (p *Peer) ReceiveHeartbeat(hb domain.Heartbeat) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info.LastHeartbeatTs = hb.Timestamp
	p.info.LastReceivedSequence = hb.Sequence
	p.info.MissedHeartbeats = 0
	if p.info.State == domain.PeerDegraded {
		p.info.State = domain.PeerConnected
	}
}

// CheckMissedHeartbeat accounts for one elapsed heartbeat interval with no
// heartbeat received, applying the degraded/offline miss thresholds. It is
// a no-op outside the connected/degraded states.
func (p *Peer) CheckMissedHeartbeat() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.info.State != domain.PeerConnected && p.info.State != domain.PeerDegraded {
		return
	}

	p.info.MissedHeartbeats++
	switch p.info.State {
	case domain.PeerConnected:
		if p.info.MissedHeartbeats >= p.cfg.DegradedAfterMissed {
			p.info.State = domain.PeerDegraded
		}
	case domain.PeerDegraded:
		if p.info.MissedHeartbeats >= p.cfg.OfflineAfterMissed {
			p.info.State = domain.PeerOffline
		}
	}
}

// Reset clears all tracking state but preserves node identity.
func (p *Peer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	node := p.info.Node
	p.info = domain.PeerInfo{Node: node, State: domain.PeerDisconnected}
}
