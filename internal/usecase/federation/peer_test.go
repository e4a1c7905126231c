package federation

import (
	"testing"

	"nullclaw/internal/domain"
)

func TestCanTransitionToValidEdges(t *testing.T) {
	valid := map[domain.PeerState][]domain.PeerState{
		domain.PeerDisconnected:     {domain.PeerHandshakePending},
		domain.PeerHandshakePending: {domain.PeerConnected, domain.PeerDisconnected},
		domain.PeerConnected:        {domain.PeerDegraded, domain.PeerDisconnected},
		domain.PeerDegraded:         {domain.PeerConnected, domain.PeerOffline, domain.PeerDisconnected},
		domain.PeerOffline:         {domain.PeerDisconnected},
	}
	for from, tos := range valid {
		for _, to := range tos {
			if !CanTransitionTo(from, to) {
				t.Errorf("expected %v -> %v to be valid", from, to)
			}
		}
	}
}

func TestCanTransitionToRejectsSelfTransition(t *testing.T) {
	for _, s := range []domain.PeerState{domain.PeerDisconnected, domain.PeerHandshakePending, domain.PeerConnected, domain.PeerDegraded, domain.PeerOffline} {
		if CanTransitionTo(s, s) {
			t.Errorf("expected %v -> %v (self) to be invalid", s, s)
		}
	}
}

func TestCanTransitionToRejectsUnlistedEdges(t *testing.T) {
	cases := []struct{ from, to domain.PeerState }{
		{domain.PeerDisconnected, domain.PeerConnected},
		{domain.PeerConnected, domain.PeerOffline},
		{domain.PeerOffline, domain.PeerConnected},
		{domain.PeerHandshakePending, domain.PeerDegraded},
	}
	for _, c := range cases {
		if CanTransitionTo(c.from, c.to) {
			t.Errorf("expected %v -> %v to be invalid", c.from, c.to)
		}
	}
}

func testHeartbeatConfig() domain.HeartbeatConfig {
	return domain.HeartbeatConfig{IntervalMs: 1000, DegradedAfterMissed: 2, OfflineAfterMissed: 5}
}

func TestPeerTransitionToRejectsInvalidEdge(t *testing.T) {
	p := NewPeer("huginn", testHeartbeatConfig())
	if err := p.TransitionTo(domain.PeerConnected); err == nil {
		t.Error("expected error transitioning directly from disconnected to connected")
	}
}

func TestPeerTransitionToHappyPath(t *testing.T) {
	p := NewPeer("huginn", testHeartbeatConfig())
	if err := p.TransitionTo(domain.PeerHandshakePending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.TransitionTo(domain.PeerConnected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Info().State != domain.PeerConnected {
		t.Errorf("state = %v, want connected", p.Info().State)
	}
	if p.Info().ConnectedAt == 0 {
		t.Error("expected ConnectedAt to be set on transition to connected")
	}
}

func TestPeerHandshakeAcceptsMatchingVersion(t *testing.T) {
	p := NewPeer("huginn", testHeartbeatConfig())
	resp := p.Handshake(domain.HandshakeRequest{SourceNode: "muninn", SchemaVersion: domain.SchemaVersion})
	if resp.Result != domain.HandshakeAccepted {
		t.Errorf("Result = %v, want accepted", resp.Result)
	}
}

func TestPeerHandshakeRejectsVersionMismatch(t *testing.T) {
	p := NewPeer("huginn", testHeartbeatConfig())
	resp := p.Handshake(domain.HandshakeRequest{SourceNode: "muninn", SchemaVersion: domain.SchemaVersion + 1})
	if resp.Result != domain.HandshakeVersionMismatch {
		t.Errorf("Result = %v, want version_mismatch", resp.Result)
	}
	if resp.Reason == "" {
		t.Error("expected a reason to be set")
	}
}

func TestPeerMissedHeartbeatsDegradesThenOffline(t *testing.T) {
	cfg := domain.HeartbeatConfig{IntervalMs: 1000, DegradedAfterMissed: 2, OfflineAfterMissed: 3}
	p := NewPeer("huginn", cfg)
	_ = p.TransitionTo(domain.PeerHandshakePending)
	_ = p.TransitionTo(domain.PeerConnected)

	p.CheckMissedHeartbeat() // missed=1, still connected
	if p.Info().State != domain.PeerConnected {
		t.Fatalf("after 1 miss: state = %v, want connected", p.Info().State)
	}

	p.CheckMissedHeartbeat() // missed=2, reaches degraded_after_missed
	if p.Info().State != domain.PeerDegraded {
		t.Fatalf("after 2 misses: state = %v, want degraded", p.Info().State)
	}

	p.CheckMissedHeartbeat() // missed=3, reaches offline_after_missed
	if p.Info().State != domain.PeerOffline {
		t.Fatalf("after 3 misses: state = %v, want offline", p.Info().State)
	}
}

func TestPeerReceiveHeartbeatRecoversFromDegraded(t *testing.T) {
	cfg := domain.HeartbeatConfig{IntervalMs: 1000, DegradedAfterMissed: 1, OfflineAfterMissed: 5}
	p := NewPeer("huginn", cfg)
	_ = p.TransitionTo(domain.PeerHandshakePending)
	_ = p.TransitionTo(domain.PeerConnected)
	p.CheckMissedHeartbeat() // -> degraded

	if p.Info().State != domain.PeerDegraded {
		t.Fatalf("precondition failed: state = %v", p.Info().State)
	}

	p.ReceiveHeartbeat(domain.Heartbeat{SourceNode: "huginn", Sequence: 5})
	if p.Info().State != domain.PeerConnected {
		t.Errorf("state = %v, want connected after heartbeat recovery", p.Info().State)
	}
	if p.Info().MissedHeartbeats != 0 {
		t.Errorf("MissedHeartbeats = %d, want reset to 0", p.Info().MissedHeartbeats)
	}
}

func TestPeerResetPreservesNodeIdentity(t *testing.T) {
	p := NewPeer("huginn", testHeartbeatConfig())
	_ = p.TransitionTo(domain.PeerHandshakePending)
	_ = p.TransitionTo(domain.PeerConnected)
	p.ReceiveHeartbeat(domain.Heartbeat{Sequence: 42})

	p.Reset()
	info := p.Info()
	if info.Node != "huginn" {
		t.Errorf("Node = %q, want preserved", info.Node)
	}
	if info.State != domain.PeerDisconnected || info.LastReceivedSequence != 0 {
		t.Errorf("Reset() did not clear tracking state: %+v", info)
	}
}
