package domain

// SchemaVersion is the current sync protocol wire schema version. Messages
// and snapshots carrying any other value are rejected.
const SchemaVersion = 1

// DeltaKind is the payload kind carried by a SyncMessage.
type DeltaKind string

const (
	DeltaKindMemory DeltaKind = "memory"
	DeltaKindTask   DeltaKind = "task"
	DeltaKindEvent  DeltaKind = "event"
)

// DeltaOp is the mutation kind a delta represents.
type DeltaOp string

const (
	DeltaOpCreate DeltaOp = "create"
	DeltaOpUpdate DeltaOp = "update"
	DeltaOpDelete DeltaOp = "delete"
)

// DeltaHeader is the envelope shared by every SyncMessage.
type DeltaHeader struct {
	SchemaVersion int
	SourceNode    string
	Sequence      uint64
	Timestamp     int64 // ms since epoch, informational only
	Kind          DeltaKind
	Op            DeltaOp
	RecordID      string
}

// SyncCursor tracks replication progress against one remote node.
type SyncCursor struct {
	RemoteNode   string
	LastSequence uint64
	LastSyncTs   int64
}

// MemoryDelta carries a partial update to a memory record.
type MemoryDelta struct {
	Key        string
	Content    *string
	Category   *string
	Kind       *string
	Tier       *string
	Confidence *float64
}

// TaskDelta carries a partial update to a task record.
type TaskDelta struct {
	TaskID   string
	Status   *string
	Title    *string
	Priority *string
	Notes    *string
}

// EventDelta carries a partial update to a timeline event.
type EventDelta struct {
	EventID   string
	Severity  *string
	EventKind *string
	Summary   *string
	DataJSON  *string
}

// SyncMessage carries a DeltaHeader plus exactly one payload matching
// Header.Kind.
type SyncMessage struct {
	Header DeltaHeader
	Memory *MemoryDelta
	Task   *TaskDelta
	Event  *EventDelta
}

// ConflictResolutionRule names the single-rule policy that decided a
// ConflictOutcome.
type ConflictResolutionRule string

const (
	RuleLastConfirmedWins ConflictResolutionRule = "last_confirmed_wins"
	RuleHighestConfidence ConflictResolutionRule = "highest_confidence"
	RuleLastWriterWins    ConflictResolutionRule = "last_writer_wins"
	RuleSourcePriority    ConflictResolutionRule = "source_priority"
)

// ConflictRecord is one side of a concurrent update to the same record.
type ConflictRecord struct {
	SourceNode      string
	UpdatedAt       int64
	LastConfirmedAt int64
	Confidence      float64
	Sequence        uint64
}

// ConflictWinner identifies which side of a conflict prevails.
type ConflictWinner string

const (
	WinnerLocal  ConflictWinner = "local"
	WinnerRemote ConflictWinner = "remote"
)

// ConflictOutcome is the result of resolving two concurrent ConflictRecords.
type ConflictOutcome struct {
	Winner    ConflictWinner
	DecidedBy ConflictResolutionRule
}

// PeerState is a federation peer's connection lifecycle state.
type PeerState string

const (
	PeerDisconnected     PeerState = "disconnected"
	PeerHandshakePending PeerState = "handshake_pending"
	PeerConnected        PeerState = "connected"
	PeerDegraded         PeerState = "degraded"
	PeerOffline          PeerState = "offline"
)

// PeerInfo tracks one remote node's federation state.
type PeerInfo struct {
	Node                 string
	State                PeerState
	LastHeartbeatTs      int64
	MissedHeartbeats     int
	ConnectedAt          int64
	LastReceivedSequence uint64
}

// HeartbeatConfig controls federation heartbeat cadence and miss thresholds.
type HeartbeatConfig struct {
	IntervalMs          int64
	DegradedAfterMissed int
	OfflineAfterMissed  int
}

// DefaultHeartbeatConfig returns the spec's default heartbeat tuning.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{IntervalMs: 30000, DegradedAfterMissed: 2, OfflineAfterMissed: 5}
}

// HandshakeResult is the responder's verdict on a handshake request.
type HandshakeResult string

const (
	HandshakeAccepted        HandshakeResult = "accepted"
	HandshakeRejected        HandshakeResult = "rejected"
	HandshakeVersionMismatch HandshakeResult = "version_mismatch"
)

// HandshakeRequest is sent by the initiator of a federation handshake.
type HandshakeRequest struct {
	SourceNode       string
	SchemaVersion    int
	Timestamp        int64
	LastSeenSequence uint64
}

// HandshakeResponse is sent by the responder of a federation handshake.
type HandshakeResponse struct {
	SourceNode       string
	SchemaVersion    int
	Timestamp        int64
	Result           HandshakeResult
	Reason           string
	LastSeenSequence uint64
}

// Heartbeat is a periodic federation liveness signal.
type Heartbeat struct {
	SourceNode string
	Timestamp  int64
	Sequence   uint64
	UptimeMs   int64
}

// HubSnapshotMeta describes a versioned hub export.
type HubSnapshotMeta struct {
	SchemaVersion int
	Format        string
	SourceNode    string
	CreatedAt     int64
	EntryCount    int
}

// HubSnapshotFormat is the required magic string for a hub snapshot.
const HubSnapshotFormat = "nullclaw-hub-snapshot"

// HubSnapshot is a versioned, portable export of synced state.
type HubSnapshot struct {
	Meta    HubSnapshotMeta
	Entries []HubSnapshotEntry
}

// HubSnapshotEntry is one exported record within a HubSnapshot.
type HubSnapshotEntry struct {
	Kind     DeltaKind
	RecordID string
	DataJSON string
}

// HubImportResult reports how many entries were imported versus skipped.
type HubImportResult struct {
	Imported int
	Skipped  int
}
