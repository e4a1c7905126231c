package syncproto

import "nullclaw/internal/domain"

// ResolveConflict applies the four-rule precedence chain to two concurrent
// records for the same record_id, applied independently on each side so
// both reach the same verdict without coordination:
//
//  1. Greater LastConfirmedAt wins.
//  2. Else greater Confidence wins.
//  3. Else greater UpdatedAt wins.
//  4. Else lexicographically smaller SourceNode wins; identical ids default
//     to local.
func ResolveConflict(local, remote domain.ConflictRecord) domain.ConflictOutcome {
	if local.LastConfirmedAt != remote.LastConfirmedAt {
		return pick(local.LastConfirmedAt > remote.LastConfirmedAt, domain.RuleLastConfirmedWins)
	}
	if local.Confidence != remote.Confidence {
		return pick(local.Confidence > remote.Confidence, domain.RuleHighestConfidence)
	}
	if local.UpdatedAt != remote.UpdatedAt {
		return pick(local.UpdatedAt > remote.UpdatedAt, domain.RuleLastWriterWins)
	}
	if local.SourceNode == remote.SourceNode {
		return domain.ConflictOutcome{Winner: domain.WinnerLocal, DecidedBy: domain.RuleSourcePriority}
	}
	return pick(local.SourceNode < remote.SourceNode, domain.RuleSourcePriority)
}

// ResolveConflictWithRule applies a single named rule instead of the full
// precedence chain, for callers that have opted into one policy.
func ResolveConflictWithRule(local, remote domain.ConflictRecord, rule domain.ConflictResolutionRule) domain.ConflictOutcome {
	switch rule {
	case domain.RuleLastConfirmedWins:
		return pick(local.LastConfirmedAt >= remote.LastConfirmedAt, rule)
	case domain.RuleHighestConfidence:
		return pick(local.Confidence >= remote.Confidence, rule)
	case domain.RuleLastWriterWins:
		return pick(local.UpdatedAt >= remote.UpdatedAt, rule)
	case domain.RuleSourcePriority:
		if local.SourceNode == remote.SourceNode {
			return domain.ConflictOutcome{Winner: domain.WinnerLocal, DecidedBy: rule}
		}
		return pick(local.SourceNode < remote.SourceNode, rule)
	default:
		return ResolveConflict(local, remote)
	}
}

func pick(localWins bool, rule domain.ConflictResolutionRule) domain.ConflictOutcome {
	if localWins {
		return domain.ConflictOutcome{Winner: domain.WinnerLocal, DecidedBy: rule}
	}
	return domain.ConflictOutcome{Winner: domain.WinnerRemote, DecidedBy: rule}
}
