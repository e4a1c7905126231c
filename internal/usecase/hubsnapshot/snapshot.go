// Package hubsnapshot implements versioned export/import of synced state
// for transport outside the sync protocol proper (file transfer, pasted
// blob, offline hand-off).
package hubsnapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"nullclaw/internal/domain"
)

// Export builds a versioned HubSnapshot for sourceNode from entries,
// stamping createdAt (ms since epoch, supplied by the caller).
func Export(sourceNode string, createdAt int64, entries []domain.HubSnapshotEntry) domain.HubSnapshot {
	return domain.HubSnapshot{
		Meta: domain.HubSnapshotMeta{
			SchemaVersion: domain.SchemaVersion,
			Format:        domain.HubSnapshotFormat,
			SourceNode:    sourceNode,
			CreatedAt:     createdAt,
			EntryCount:    len(entries),
		},
		Entries: entries,
	}
}

// Import validates and decodes a HubSnapshot. Malformed entries are
// skipped rather than rejecting the whole snapshot; only a bad magic or
// schema version rejects the import outright.
func Import(snap domain.HubSnapshot) (domain.HubImportResult, error) {
	if snap.Meta.Format != domain.HubSnapshotFormat {
		return domain.HubImportResult{}, domain.NewSubSystemError("hubsnapshot", "Import", domain.ErrSnapshotFormat, "missing or mismatched format magic")
	}
	if snap.Meta.SchemaVersion != domain.SchemaVersion {
		return domain.HubImportResult{}, domain.NewSubSystemError("hubsnapshot", "Import", domain.ErrSchemaMismatch,
			fmt.Sprintf("got schema_version %d", snap.Meta.SchemaVersion))
	}

	var result domain.HubImportResult
	for _, e := range snap.Entries {
		if !isWellFormedEntry(e) {
			result.Skipped++
			continue
		}
		result.Imported++
	}
	return result, nil
}

func isWellFormedEntry(e domain.HubSnapshotEntry) bool {
	if e.RecordID == "" || e.DataJSON == "" {
		return false
	}
	return validEntryPayload(e)
}

// Save atomically writes snap as indented JSON to path: write to a sibling
// temp file, then rename over the target so readers never observe a
// partial write.
func Save(path string, snap domain.HubSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return domain.WrapOp("hubsnapshot.Save: marshal", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return domain.WrapOp("hubsnapshot.Save: write", err)
	}
	return os.Rename(tmp, path)
}

// Load reads and decodes a HubSnapshot from path.
func Load(path string) (domain.HubSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.HubSnapshot{}, domain.WrapOp("hubsnapshot.Load: read", err)
	}
	var snap domain.HubSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.HubSnapshot{}, domain.WrapOp("hubsnapshot.Load: unmarshal", err)
	}
	return snap, nil
}
