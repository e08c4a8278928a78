package conn

import (
	"net/url"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/driftsql/drift/internal/dialect"
)

// DriverDSN converts the user-facing connection URL into the form the
// dialect's database/sql driver expects. Variant schemes (nile://, neon://,
// cockroachdb://) are rewritten to postgres:// for pgx; mysql-family URLs
// are converted to the go-sql-driver format; sqlite URLs reduce to a file
// path.
func DriverDSN(d *dialect.Dialect, raw string) string {
	switch d.Family {
	case dialect.FamilyPostgres:
		return sanitizePostgresURL(raw)
	case dialect.FamilyMySQL:
		return mysqlDriverDSN(d, raw)
	case dialect.FamilySQLite:
		return sqlitePath(raw)
	default:
		return raw
	}
}

// sqlitePath strips a sqlite:// or file:// scheme, leaving the path plus
// any pragma query string.
func sqlitePath(raw string) string {
	for _, prefix := range []string{"sqlite://", "sqlite3://", "file://"} {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimPrefix(raw, prefix)
		}
	}
	return raw
}

// sanitizePostgresURL normalizes the scheme to postgres:// and re-encodes
// userinfo so passwords containing @, #, or % survive URL parsing. Raw
// passwords with URL-special characters mis-split the authority component
// and surface as baffling connection failures.
func sanitizePostgresURL(raw string) string {
	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return raw // key=value DSN, pass through
	}
	rest := raw[schemeEnd+3:]

	query := ""
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		query = rest[qi:]
		rest = rest[:qi]
	}

	// Everything before the LAST '@' is userinfo.
	atIdx := strings.LastIndex(rest, "@")
	if atIdx < 0 {
		return "postgres://" + rest + query
	}
	userinfo := rest[:atIdx]
	hostpath := rest[atIdx+1:]

	user := userinfo
	pass := ""
	if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
		user = userinfo[:ci]
		pass = userinfo[ci+1:]
	}

	// url.Userinfo escapes exactly the set that breaks authority parsing
	// (@, #, /); PathEscape leaves '@' alone and QueryEscape turns spaces
	// into '+', both of which corrupt passwords.
	encoded := url.User(user).String()
	if pass != "" {
		encoded = url.UserPassword(user, pass).String()
	}
	return "postgres://" + encoded + "@" + hostpath + query
}

// mysqlDriverDSN converts a mysql:// style URL into the
// user:pass@tcp(host:port)/dbname format go-sql-driver requires. DSNs
// already in driver format are normalized through ParseDSN and returned.
func mysqlDriverDSN(d *dialect.Dialect, raw string) string {
	if cfg, err := mysqldriver.ParseDSN(raw); err == nil && (cfg.Net == "tcp" || cfg.Net == "unix") {
		return cfg.FormatDSN()
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw // let the connect call produce the real error
	}

	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(d.DefaultPort)
	}
	cfg.Addr = host + ":" + port
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	if cfg.User == "" {
		cfg.User = d.DefaultUser
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.Query().Get("tls") != "" {
		cfg.TLSConfig = u.Query().Get("tls")
	}
	return cfg.FormatDSN()
}
