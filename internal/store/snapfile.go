package store

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"pid-extract/internal/drawing"
)

// Snapshot files are a compact binary interchange format for drawing
// snapshots, used to move drawings between the host database and offline
// runs without a live database.

// snapFileVersion guards against reading files written by an incompatible
// layout.
const snapFileVersion = 1

type snapFile struct {
	Version  int               `msgpack:"version"`
	Snapshot *drawing.Snapshot `msgpack:"snapshot"`
}

// WriteSnapshotFile serializes the snapshot to a msgpack file.
func WriteSnapshotFile(path string, snap *drawing.Snapshot) error {
	data, err := msgpack.Marshal(snapFile{Version: snapFileVersion, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

// ReadSnapshotFile reads a snapshot written by WriteSnapshotFile.
func ReadSnapshotFile(path string) (*drawing.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var file snapFile
	if err := msgpack.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}
	if file.Version != snapFileVersion {
		return nil, fmt.Errorf("unsupported snapshot file version %d", file.Version)
	}
	if file.Snapshot == nil {
		return nil, fmt.Errorf("snapshot file carries no snapshot")
	}
	return file.Snapshot, nil
}
