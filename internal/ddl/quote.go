package ddl

import (
	"strings"

	"github.com/driftsql/drift/internal/dialect"
)

// reservedWords is the union of reserved words across the supported
// dialects. Quoting a non-reserved word is always safe, so the set errs on
// the side of inclusion.
var reservedWords = map[string]bool{
	"add": true, "all": true, "alter": true, "analyze": true, "and": true,
	"any": true, "array": true, "as": true, "asc": true, "authorization": true,
	"begin": true, "between": true, "binary": true, "both": true, "by": true,
	"cascade": true, "case": true, "cast": true, "check": true, "collate": true,
	"column": true, "commit": true, "constraint": true, "create": true,
	"cross": true, "current_date": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "database": true,
	"default": true, "delete": true, "desc": true, "describe": true,
	"distinct": true, "do": true, "drop": true, "else": true, "end": true,
	"except": true, "exists": true, "explain": true, "false": true,
	"fetch": true, "for": true, "foreign": true, "from": true, "full": true,
	"function": true, "grant": true, "group": true, "having": true, "if": true,
	"ignore": true, "in": true, "index": true, "inner": true, "insert": true,
	"intersect": true, "interval": true, "into": true, "is": true, "join": true,
	"key": true, "leading": true, "left": true, "like": true, "limit": true,
	"localtime": true, "localtimestamp": true, "lock": true, "natural": true,
	"not": true, "null": true, "offset": true, "on": true, "only": true,
	"or": true, "order": true, "outer": true, "over": true, "partition": true,
	"primary": true, "procedure": true, "range": true, "references": true,
	"restrict": true, "returning": true, "revoke": true, "right": true,
	"rollback": true, "row": true, "rows": true, "select": true,
	"session_user": true, "set": true, "some": true, "table": true,
	"then": true, "to": true, "trailing": true, "transaction": true,
	"trigger": true, "true": true, "union": true, "unique": true,
	"update": true, "user": true, "using": true, "values": true, "view": true,
	"when": true, "where": true, "window": true, "with": true,
}

// Quote returns the identifier quoted for the dialect when quoting is
// required: reserved words, mixed case, leading digits, or any character
// outside [a-z0-9_]. Plain lowercase identifiers pass through unquoted.
// Type names never go through Quote.
func Quote(d *dialect.Dialect, name string) string {
	if needsQuoting(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if reservedWords[strings.ToLower(name)] {
		return true
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}
