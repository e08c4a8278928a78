// Package migration reads and writes drift's migration files: plain SQL
// with -- UP and -- DOWN marker comments, one statement per top-level
// semicolon. Filenames are either sequential (NNN_name.sql) or timestamped
// (YYYYMMDDHHMMSS_name.sql).
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/driftsql/drift/internal/drifterr"
)

// Markers delimiting the two sections of a migration file.
const (
	upMarker   = "-- UP"
	downMarker = "-- DOWN"
)

// NamingScheme selects how new migration files are numbered.
type NamingScheme string

const (
	SchemeSequential  NamingScheme = "sequential"
	SchemeTimestamped NamingScheme = "timestamped"
)

// Migration is one migration file, parsed.
type Migration struct {
	Name     string   // the free-text part of the filename
	Filename string   // base name of the file
	Up       []string // statements in apply order
	Down     []string // statements in revert order
	Hash     string   // sha256 of the file contents, hex
}

var (
	sequentialRe  = regexp.MustCompile(`^(\d{3,})_(.+)\.sql$`)
	timestampedRe = regexp.MustCompile(`^(\d{14})_(.+)\.sql$`)
)

// ParseFilename extracts the ordering key and name from a migration
// filename. It accepts both naming schemes.
func ParseFilename(filename string) (key, name string, err error) {
	if m := timestampedRe.FindStringSubmatch(filename); m != nil {
		return m[1], m[2], nil
	}
	if m := sequentialRe.FindStringSubmatch(filename); m != nil {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("migration: filename %q is neither NNN_name.sql nor YYYYMMDDHHMMSS_name.sql", filename)
}

// NewFilename builds the next filename under the given scheme. For the
// sequential scheme, existing holds the filenames already present.
func NewFilename(scheme NamingScheme, name string, existing []string, now time.Time) string {
	slug := Slugify(name)
	if scheme == SchemeTimestamped {
		return now.UTC().Format("20060102150405") + "_" + slug + ".sql"
	}
	next := 1
	for _, f := range existing {
		var n int
		if m := sequentialRe.FindStringSubmatch(f); m != nil {
			fmt.Sscanf(m[1], "%d", &n)
			if n >= next {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%03d_%s.sql", next, slug)
}

// Slugify lowers a human migration name into a filename-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Parse reads the two sections of a migration file body.
func Parse(filename string, body []byte) (*Migration, error) {
	_, name, err := ParseFilename(filename)
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	m := &Migration{
		Name:     name,
		Filename: filename,
		Hash:     HashBytes(body),
	}

	section := ""
	var up, down strings.Builder
	for _, line := range strings.Split(string(body), "\n") {
		switch strings.TrimSpace(line) {
		case upMarker:
			section = "up"
			continue
		case downMarker:
			section = "down"
			continue
		}
		switch section {
		case "up":
			up.WriteString(line + "\n")
		case "down":
			down.WriteString(line + "\n")
		}
	}
	if section == "" {
		return nil, drifterr.New(drifterr.Configuration, "migration %s: missing %q marker", filename, upMarker)
	}

	m.Up = Split(up.String())
	m.Down = Split(down.String())
	return m, nil
}

// Render writes a migration body from its statement lists.
func Render(up, down []string) []byte {
	var b strings.Builder
	b.WriteString(upMarker + "\n")
	for _, s := range up {
		b.WriteString(s + "\n")
	}
	b.WriteString("\n" + downMarker + "\n")
	for _, s := range down {
		b.WriteString(s + "\n")
	}
	return []byte(b.String())
}

// Load reads and parses one migration file.
func Load(path string) (*Migration, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	return Parse(filepath.Base(path), body)
}

// LoadDir reads every migration in a directory, ordered by filename key.
// A missing directory yields an empty list.
func LoadDir(dir string) ([]*Migration, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	var out []*Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// HashBytes returns the hex sha256 of a file body.
func HashBytes(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
