package dialect

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// registry holds every dialect drift knows about, keyed by name. The set is
// closed; there is no runtime registration.
var registry = map[string]*Dialect{}

func init() {
	for _, d := range []*Dialect{
		Postgres, CockroachDB, Nile, Neon,
		MySQL, MariaDB, PlanetScale,
		SQLite, LibSQL,
		DocStore,
	} {
		registry[d.Name] = d
	}
}

// Get returns the dialect by name.
func Get(name string) (*Dialect, error) {
	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names returns all dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hosted variants reachable through generic postgres:// or mysql:// URLs are
// told apart by their host suffix.
var hostHints = []struct {
	suffix  string
	dialect *Dialect
}{
	{".neon.tech", Neon},
	{".db.thenile.dev", Nile},
	{".cockroachlabs.cloud", CockroachDB},
	{".psdb.cloud", PlanetScale},
}

// Detect resolves a connection URL to a dialect. The scheme decides the
// family; well-known hosted suffixes refine generic schemes to their
// variant. Ambiguous or unknown URLs return an error so the user configures
// the dialect explicitly.
func Detect(rawURL string) (*Dialect, error) {
	if strings.HasSuffix(rawURL, ".db") || strings.HasSuffix(rawURL, ".sqlite") || strings.HasSuffix(rawURL, ".sqlite3") {
		return SQLite, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("connection url %q has no scheme; set the dialect explicitly", rawURL)
	}

	var byScheme *Dialect
	for _, d := range registry {
		for _, s := range d.URLSchemes {
			if s == scheme {
				byScheme = d
			}
		}
	}
	if byScheme == nil {
		return nil, fmt.Errorf("no dialect handles url scheme %q", scheme)
	}

	host := strings.ToLower(u.Hostname())
	for _, hint := range hostHints {
		if strings.HasSuffix(host, hint.suffix) && hint.dialect.Family == byScheme.Family {
			return hint.dialect, nil
		}
	}

	return byScheme, nil
}
