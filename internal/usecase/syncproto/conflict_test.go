package syncproto

import (
	"testing"

	"nullclaw/internal/domain"
)

func TestResolveConflictLastConfirmedWins(t *testing.T) {
	local := domain.ConflictRecord{SourceNode: "huginn", LastConfirmedAt: 200, Confidence: 0.1, UpdatedAt: 50}
	remote := domain.ConflictRecord{SourceNode: "muninn", LastConfirmedAt: 100, Confidence: 0.9, UpdatedAt: 999}

	out := ResolveConflict(local, remote)
	if out.Winner != domain.WinnerLocal || out.DecidedBy != domain.RuleLastConfirmedWins {
		t.Errorf("got %+v", out)
	}
}

func TestResolveConflictFallsToConfidence(t *testing.T) {
	local := domain.ConflictRecord{SourceNode: "huginn", LastConfirmedAt: 100, Confidence: 0.9, UpdatedAt: 1}
	remote := domain.ConflictRecord{SourceNode: "muninn", LastConfirmedAt: 100, Confidence: 0.2, UpdatedAt: 999}

	out := ResolveConflict(local, remote)
	if out.Winner != domain.WinnerLocal || out.DecidedBy != domain.RuleHighestConfidence {
		t.Errorf("got %+v", out)
	}
}

func TestResolveConflictFallsToLastWriterWins(t *testing.T) {
	local := domain.ConflictRecord{SourceNode: "huginn", LastConfirmedAt: 100, Confidence: 0.5, UpdatedAt: 500}
	remote := domain.ConflictRecord{SourceNode: "muninn", LastConfirmedAt: 100, Confidence: 0.5, UpdatedAt: 100}

	out := ResolveConflict(local, remote)
	if out.Winner != domain.WinnerLocal || out.DecidedBy != domain.RuleLastWriterWins {
		t.Errorf("got %+v", out)
	}
}

func TestResolveConflictFallsToSourcePriority(t *testing.T) {
	local := domain.ConflictRecord{SourceNode: "huginn", UpdatedAt: 100, LastConfirmedAt: 100, Confidence: 0.5}
	remote := domain.ConflictRecord{SourceNode: "muninn", UpdatedAt: 100, LastConfirmedAt: 100, Confidence: 0.5}

	out := ResolveConflict(local, remote)
	if out.Winner != domain.WinnerLocal || out.DecidedBy != domain.RuleSourcePriority {
		t.Errorf("got %+v, want local via source_priority (huginn < muninn)", out)
	}
}

func TestResolveConflictIdenticalSourceDefaultsToLocal(t *testing.T) {
	rec := domain.ConflictRecord{SourceNode: "huginn", UpdatedAt: 100, LastConfirmedAt: 100, Confidence: 0.5}
	out := ResolveConflict(rec, rec)
	if out.Winner != domain.WinnerLocal {
		t.Errorf("got %+v, want local on identical records", out)
	}
}

func TestResolveConflictAntisymmetricUnderSideSwap(t *testing.T) {
	huginn := domain.ConflictRecord{SourceNode: "huginn", UpdatedAt: 100, LastConfirmedAt: 100, Confidence: 0.5}
	muninn := domain.ConflictRecord{SourceNode: "muninn", UpdatedAt: 100, LastConfirmedAt: 100, Confidence: 0.5}

	fromHuginnSide := ResolveConflict(huginn, muninn)
	fromMuninnSide := ResolveConflict(muninn, huginn)

	if fromHuginnSide.Winner != domain.WinnerLocal {
		t.Errorf("huginn side: got %v, want local", fromHuginnSide.Winner)
	}
	if fromMuninnSide.Winner != domain.WinnerRemote {
		t.Errorf("muninn side: got %v, want remote", fromMuninnSide.Winner)
	}
}

func TestResolveConflictWithRuleSingleRule(t *testing.T) {
	local := domain.ConflictRecord{SourceNode: "huginn", Confidence: 0.1, LastConfirmedAt: 50}
	remote := domain.ConflictRecord{SourceNode: "muninn", Confidence: 0.9, LastConfirmedAt: 999}

	out := ResolveConflictWithRule(local, remote, domain.RuleHighestConfidence)
	if out.Winner != domain.WinnerRemote || out.DecidedBy != domain.RuleHighestConfidence {
		t.Errorf("got %+v, want remote via highest_confidence despite lower last_confirmed_at", out)
	}
}
