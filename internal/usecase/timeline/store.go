// Package timeline implements the append-only observability event log and
// its positional-parse replay reader.
package timeline

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"nullclaw/internal/domain"
)

const maxLineBytes = 4096

// Store is a mutex-protected append-only timeline event log: one
// newline-delimited JSON object per event. Each append opens the file,
// seeks to the end, writes, and closes — no file descriptor is held
// between calls.
type Store struct {
	mu   sync.Mutex
	path string
	seq  atomic.Uint64
}

// NewStore opens (creating if absent) the JSONL file at path.
func NewStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, domain.WrapOp("timeline.NewStore: open", err)
	}
	if err := f.Close(); err != nil {
		return nil, domain.WrapOp("timeline.NewStore: close", err)
	}
	return &Store{path: path}, nil
}

// NextSeq returns the next monotonic sequence number, safe to call
// concurrently without holding the store's append lock.
func (s *Store) NextSeq() uint64 {
	return s.seq.Add(1)
}

// Append serializes event into a single JSON line and appends it to the
// log. Oversized events — larger than the 4096-byte line buffer after
// serialization — return an error to the caller rather than being
// truncated or partially written. Events with no ID are stamped with a
// fresh ULID before serialization, so callers only need to set one
// explicitly when correlating against an externally-minted identifier.
func (s *Store) Append(event domain.TimelineEvent) error {
	if event.ID == "" {
		event.ID = newEventID()
	}
	if event.Ts == 0 {
		event.Ts = time.Now().UnixMilli()
	}

	line, err := formatJSONLine(event)
	if err != nil {
		return err
	}
	if len(line)+1 > maxLineBytes {
		return domain.NewSubSystemError("timeline", "Store.Append", domain.ErrBufferOverflow,
			fmt.Sprintf("serialized event is %d bytes, exceeds %d byte line buffer", len(line)+1, maxLineBytes))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return domain.WrapOp("timeline.Store.Append: open", err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return domain.WrapOp("timeline.Store.Append: seek", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return domain.WrapOp("timeline.Store.Append: write", err)
	}
	return nil
}

// newEventID mints a lexicographically sortable event identifier so
// readers can order events by ID without parsing the timestamp field.
func newEventID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

type wireEvent struct {
	ID           string `json:"id"`
	Ts           int64  `json:"ts"`
	Kind         string `json:"kind"`
	Severity     string `json:"severity"`
	Name         string `json:"name"`
	SessionID    string `json:"session_id,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
	SpanID       string `json:"span_id,omitempty"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
	DurationNs   int64  `json:"duration_ns,omitempty"`
	Message      string `json:"message,omitempty"`
	Component    string `json:"component,omitempty"`
}

func formatJSONLine(e domain.TimelineEvent) ([]byte, error) {
	data, err := json.Marshal(wireEvent{
		ID: e.ID, Ts: e.Ts, Kind: e.Kind, Severity: string(e.Severity), Name: e.Name,
		SessionID: e.SessionID, TaskID: e.TaskID, SpanID: e.SpanID, ParentSpanID: e.ParentSpanID,
		DurationNs: e.DurationNs, Message: e.Message, Component: e.Component,
	})
	if err != nil {
		return nil, domain.WrapOp("timeline.formatJSONLine: marshal", err)
	}
	return data, nil
}
