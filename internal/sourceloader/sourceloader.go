// Package sourceloader reads and writes the authored schema document. The
// document is the canonical schema serialized as JSON, with tracking_id
// annotations that keep object identity stable across renames. The rest of
// drift treats the document as opaque input: it only needs the loader's
// {schema, hash} result.
package sourceloader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/migration"
	"github.com/driftsql/drift/internal/schema"
)

// Source is a loaded schema document.
type Source struct {
	Schema *schema.Schema
	// Hash is the sha256 of the document bytes, used to detect
	// out-of-band edits against the snapshot's recorded hash.
	Hash string
	Path string
}

// Load reads and validates the schema document at path.
func Load(path string) (*Source, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, drifterr.New(drifterr.Configuration, "schema file %s does not exist; run drift pull first", path)
	}
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}

	var s schema.Schema
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, fmt.Errorf("parse %s: %w", path, err))
	}
	if err := s.Validate(); err != nil {
		return nil, drifterr.Wrap(drifterr.SchemaInvariant, fmt.Errorf("%s: %w", path, err))
	}
	return &Source{Schema: &s, Hash: migration.HashBytes(body), Path: path}, nil
}

// Save writes the schema document atomically and returns its content hash.
func Save(path string, s *schema.Schema) (string, error) {
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", drifterr.Wrap(drifterr.Execution, err)
	}
	body = append(body, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", drifterr.Wrap(drifterr.Configuration, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", drifterr.Wrap(drifterr.Execution, err)
	}
	if err := tmp.Close(); err != nil {
		return "", drifterr.Wrap(drifterr.Execution, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", drifterr.Wrap(drifterr.Execution, err)
	}
	return migration.HashBytes(body), nil
}

// AssignTrackingIDs stamps every table, column, index, constraint, and
// named type with a tracking id. Ids carry over from prev by name so
// objects keep their identity across pulls; objects without a predecessor
// get a fresh id.
func AssignTrackingIDs(s, prev *schema.Schema) {
	for ti := range s.Tables {
		t := &s.Tables[ti]
		var old *schema.Table
		if prev != nil {
			old = prev.FindTable(t.Name)
		}
		t.TrackingID = carryOver(t.TrackingID, old, func(o *schema.Table) string { return o.TrackingID })

		for ci := range t.Columns {
			c := &t.Columns[ci]
			if c.TrackingID != "" {
				continue
			}
			if old != nil {
				if oc := old.FindColumn(c.Name); oc != nil && oc.TrackingID != "" {
					c.TrackingID = oc.TrackingID
					continue
				}
			}
			c.TrackingID = newTrackingID()
		}
		for ii := range t.Indexes {
			ix := &t.Indexes[ii]
			if ix.TrackingID != "" {
				continue
			}
			if old != nil {
				if oi := old.FindIndex(ix.Name); oi != nil && oi.TrackingID != "" {
					ix.TrackingID = oi.TrackingID
					continue
				}
			}
			ix.TrackingID = newTrackingID()
		}
		for ki := range t.Constraints {
			con := &t.Constraints[ki]
			if con.TrackingID != "" {
				continue
			}
			if old != nil {
				if oc := old.FindConstraint(con.Name); oc != nil && oc.TrackingID != "" {
					con.TrackingID = oc.TrackingID
					continue
				}
			}
			con.TrackingID = newTrackingID()
		}
	}

	for i := range s.Enums {
		e := &s.Enums[i]
		if e.TrackingID != "" {
			continue
		}
		if prev != nil {
			if oe := prev.FindEnum(e.Name); oe != nil && oe.TrackingID != "" {
				e.TrackingID = oe.TrackingID
				continue
			}
		}
		e.TrackingID = newTrackingID()
	}
	for i := range s.Sequences {
		sq := &s.Sequences[i]
		if sq.TrackingID == "" {
			sq.TrackingID = prevSequenceID(prev, sq.Name)
		}
		if sq.TrackingID == "" {
			sq.TrackingID = newTrackingID()
		}
	}
}

func carryOver(current string, old *schema.Table, id func(*schema.Table) string) string {
	if current != "" {
		return current
	}
	if old != nil && id(old) != "" {
		return id(old)
	}
	return newTrackingID()
}

func prevSequenceID(prev *schema.Schema, name string) string {
	if prev == nil {
		return ""
	}
	for i := range prev.Sequences {
		if prev.Sequences[i].Name == name {
			return prev.Sequences[i].TrackingID
		}
	}
	return ""
}

func newTrackingID() string { return uuid.NewString() }
