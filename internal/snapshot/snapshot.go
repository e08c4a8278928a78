// Package snapshot persists the last-known schema under the repository's
// .drift directory. The snapshot is the diff baseline for push and the
// source of tracking ids across renames; it is replaced atomically
// (write-to-temp, rename) so a crash never leaves a half-written file.
// Alongside the schema it keeps a content hash of the authored schema file
// to detect out-of-band edits.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/schema"
)

// FileName is the snapshot's name inside the state directory.
const FileName = "snapshot.json"

// Snapshot is the persisted document.
type Snapshot struct {
	// Version guards the on-disk format.
	Version int `json:"version"`
	// Dialect the snapshot was taken against.
	Dialect string `json:"dialect,omitempty"`
	// TakenAt is when the snapshot was written.
	TakenAt time.Time `json:"taken_at"`
	// SourceHash is the sha256 of the authored schema file at the time of
	// the last successful pull or push.
	SourceHash string `json:"source_hash,omitempty"`

	Schema *schema.Schema `json:"schema"`
}

const currentVersion = 1

// Store reads and writes snapshots for one state directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at the given state directory (.drift).
func NewStore(dir string) *Store { return &Store{dir: dir} }

// Path returns the snapshot file path.
func (st *Store) Path() string { return filepath.Join(st.dir, FileName) }

// Load reads the snapshot. A missing file returns (nil, nil): a managed
// repository that has never pulled.
func (st *Store) Load() (*Snapshot, error) {
	body, err := os.ReadFile(st.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, fmt.Errorf("snapshot %s: %w", st.Path(), err))
	}
	if s.Version != currentVersion {
		return nil, drifterr.New(drifterr.Configuration, "snapshot %s: unsupported version %d", st.Path(), s.Version)
	}
	return &s, nil
}

// Save writes the snapshot atomically: marshal, write to a temp file in the
// same directory, fsync, rename over the target.
func (st *Store) Save(s *Snapshot) error {
	s.Version = currentVersion
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now().UTC()
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return drifterr.Wrap(drifterr.Execution, err)
	}
	body = append(body, '\n')

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return drifterr.Wrap(drifterr.Configuration, err)
	}
	tmp, err := os.CreateTemp(st.dir, FileName+".tmp-*")
	if err != nil {
		return drifterr.Wrap(drifterr.Configuration, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return drifterr.Wrap(drifterr.Execution, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return drifterr.Wrap(drifterr.Execution, err)
	}
	if err := tmp.Close(); err != nil {
		return drifterr.Wrap(drifterr.Execution, err)
	}
	if err := os.Rename(tmp.Name(), st.Path()); err != nil {
		return drifterr.Wrap(drifterr.Execution, err)
	}
	return nil
}

// HashFile returns the hex sha256 of a file's contents, or "" when the
// file does not exist.
func HashFile(path string) (string, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", drifterr.Wrap(drifterr.Configuration, err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
