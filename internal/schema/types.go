package schema

import (
	"strconv"
	"strings"
)

// typeAliases maps dialect spellings and catalog abbreviations to the
// canonical type name used throughout the model. Parameters are stripped
// before lookup and re-attached as typed fields on the Column.
var typeAliases = map[string]string{
	"int2":              "smallint",
	"int4":              "integer",
	"int":               "integer",
	"int8":              "bigint",
	"serial2":           "smallserial",
	"serial4":           "serial",
	"serial8":           "bigserial",
	"float4":            "real",
	"float":             "double precision",
	"float8":            "double precision",
	"double":            "double precision",
	"bool":              "boolean",
	"decimal":           "numeric",
	"character":         "char",
	"bpchar":            "char",
	"character varying": "varchar",
	"timestamptz":       "timestamp with time zone",
	"timetz":            "time with time zone",
	"datetime":          "timestamp",

	// MySQL spellings
	"tinyint":    "smallint",
	"mediumint":  "integer",
	"tinytext":   "text",
	"mediumtext": "text",
	"longtext":   "text",
	"tinyblob":   "bytea",
	"blob":       "bytea",
	"mediumblob": "bytea",
	"longblob":   "bytea",

	// SQLite affinities
	"clob": "text",
}

// integerTypes are the canonical integer type names ordered by width. Used
// for narrowing detection.
var integerWidth = map[string]int{
	"smallint": 2,
	"integer":  4,
	"bigint":   8,
}

// Canonicalize normalizes a raw type spelling to its canonical form and
// extracts length/precision/scale parameters into typed fields. The array
// marker ("[]" suffix or a leading "_" from pg catalogs) is extracted into
// the isArray return.
func Canonicalize(raw string) (name string, length, precision, scale *int, isArray bool) {
	s := strings.TrimSpace(strings.ToLower(raw))

	if strings.HasSuffix(s, "[]") {
		isArray = true
		s = strings.TrimSuffix(s, "[]")
	} else if strings.HasPrefix(s, "_") {
		isArray = true
		s = strings.TrimPrefix(s, "_")
	}

	// Pull out a trailing (n) or (p,s) parameter list.
	var params []int
	if open := strings.IndexByte(s, '('); open >= 0 {
		close := strings.LastIndexByte(s, ')')
		if close > open {
			for _, part := range strings.Split(s[open+1:close], ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
					params = append(params, n)
				}
			}
			s = strings.TrimSpace(s[:open] + s[close+1:])
		}
	}

	if alias, ok := typeAliases[s]; ok {
		s = alias
	}

	switch s {
	case "varchar", "char", "bit", "varbit":
		if len(params) >= 1 {
			length = &params[0]
		}
	case "numeric":
		if len(params) >= 1 {
			precision = &params[0]
		}
		if len(params) >= 2 {
			scale = &params[1]
		}
	case "timestamp", "timestamp with time zone", "time", "time with time zone", "interval":
		// Fractional-second precision.
		if len(params) >= 1 {
			precision = &params[0]
		}
	}

	return s, length, precision, scale, isArray
}

// CanonicalColumn fills a Column's type fields from a raw type spelling.
func CanonicalColumn(c Column, rawType string) Column {
	name, length, precision, scale, isArray := Canonicalize(rawType)
	c.Type = name
	c.Length = length
	c.Precision = precision
	c.Scale = scale
	c.IsArray = c.IsArray || isArray
	return c
}

// TypeString renders a column's canonical type with its parameters, e.g.
// "varchar(255)" or "numeric(10,2)". Arrays get a "[]" suffix.
func (c Column) TypeString() string {
	var b strings.Builder
	b.WriteString(c.Type)
	switch {
	case c.Length != nil:
		b.WriteString("(" + strconv.Itoa(*c.Length) + ")")
	case c.Precision != nil && c.Scale != nil:
		b.WriteString("(" + strconv.Itoa(*c.Precision) + "," + strconv.Itoa(*c.Scale) + ")")
	case c.Precision != nil:
		b.WriteString("(" + strconv.Itoa(*c.Precision) + ")")
	}
	if c.IsArray {
		b.WriteString("[]")
	}
	return b.String()
}

// IsNarrowing reports whether changing a column from old to new could lose
// data: shrinking integer width, shrinking varchar length, or reducing
// numeric precision/scale. Unknown transitions are treated as narrowing so
// they get flagged destructive rather than silently applied.
func IsNarrowing(old, new Column) bool {
	if old.Type == new.Type {
		if old.Length != nil && new.Length != nil && *new.Length < *old.Length {
			return true
		}
		if old.Precision != nil && new.Precision != nil && *new.Precision < *old.Precision {
			return true
		}
		if old.Scale != nil && new.Scale != nil && *new.Scale < *old.Scale {
			return true
		}
		return false
	}

	ow, oOK := integerWidth[old.Type]
	nw, nOK := integerWidth[new.Type]
	if oOK && nOK {
		return nw < ow
	}

	// Widening into text is safe; everything else unknown is flagged.
	if new.Type == "text" {
		return false
	}
	return true
}
