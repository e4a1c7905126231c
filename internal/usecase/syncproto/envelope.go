// Package syncproto implements the wire-level contract for cross-node sync
// messages: envelope validation and conflict resolution between concurrent
// deltas for the same record.
package syncproto

import "nullclaw/internal/domain"

// CheckEnvelope reports why msg fails the sync envelope contract, or nil if
// it's valid. A message is valid iff: the schema version matches, the
// source node is 1-64 characters, exactly one of {memory, task, event} is
// set, and the set payload's kind matches header.Kind.
func CheckEnvelope(msg domain.SyncMessage) error {
	if msg.Header.SchemaVersion != domain.SchemaVersion {
		return domain.NewSubSystemError("syncproto", "CheckEnvelope", domain.ErrSchemaMismatch, "")
	}
	if l := len(msg.Header.SourceNode); l < 1 || l > 64 {
		return domain.NewSubSystemError("syncproto", "CheckEnvelope", domain.ErrInvalidMessage, "source_node length out of range")
	}

	set := 0
	var kind domain.DeltaKind
	if msg.Memory != nil {
		set++
		kind = domain.DeltaKindMemory
	}
	if msg.Task != nil {
		set++
		kind = domain.DeltaKindTask
	}
	if msg.Event != nil {
		set++
		kind = domain.DeltaKindEvent
	}
	if set != 1 {
		return domain.NewSubSystemError("syncproto", "CheckEnvelope", domain.ErrInvalidMessage, "exactly one payload must be set")
	}
	if kind != msg.Header.Kind {
		return domain.NewSubSystemError("syncproto", "CheckEnvelope", domain.ErrInvalidMessage, "payload kind does not match header.kind")
	}
	return nil
}

// Validate reports whether msg satisfies the envelope contract. Receivers
// reject invalid messages outright rather than attempting partial repair.
func Validate(msg domain.SyncMessage) bool {
	return CheckEnvelope(msg) == nil
}
