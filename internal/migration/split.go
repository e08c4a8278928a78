package migration

import "strings"

// Split breaks SQL text into statements at top-level semicolons. Semicolons
// inside single-quoted strings, dollar-quoted regions ($tag$ ... $tag$),
// and line comments do not split. Statement text keeps its internal
// whitespace; leading/trailing whitespace is trimmed and empty statements
// are dropped. Line comments standing alone become their own entries so
// caveat comments survive a render/parse round trip.
func Split(text string) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s == "" {
			return
		}
		// Peel off leading comment-only lines into their own entries.
		for {
			line, rest, found := strings.Cut(s, "\n")
			if !strings.HasPrefix(strings.TrimSpace(line), "--") {
				break
			}
			out = append(out, strings.TrimSpace(line))
			if !found {
				return
			}
			s = strings.TrimSpace(rest)
			if s == "" {
				return
			}
		}
		out = append(out, s)
	}

	const (
		stateNormal = iota
		stateSingleQuote
		stateDollarQuote
		stateLineComment
	)
	state := stateNormal
	dollarTag := ""

	i := 0
	for i < len(text) {
		c := text[i]
		switch state {
		case stateNormal:
			switch {
			case c == ';':
				flush()
				i++
				continue
			case c == '\'':
				state = stateSingleQuote
			case c == '-' && i+1 < len(text) && text[i+1] == '-':
				state = stateLineComment
			case c == '$':
				if tag, ok := dollarTagAt(text[i:]); ok {
					state = stateDollarQuote
					dollarTag = tag
					cur.WriteString(tag)
					i += len(tag)
					continue
				}
			}
		case stateSingleQuote:
			if c == '\'' {
				// '' is an escaped quote, not a terminator.
				if i+1 < len(text) && text[i+1] == '\'' {
					cur.WriteByte(c)
					i++
				} else {
					state = stateNormal
				}
			}
		case stateDollarQuote:
			if c == '$' && strings.HasPrefix(text[i:], dollarTag) {
				cur.WriteString(dollarTag)
				i += len(dollarTag)
				state = stateNormal
				continue
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		}
		cur.WriteByte(c)
		i++
	}
	flush()
	return out
}

// dollarTagAt reports whether text starts a dollar-quote delimiter ($$ or
// $tag$) and returns it.
func dollarTagAt(text string) (string, bool) {
	if len(text) < 2 || text[0] != '$' {
		return "", false
	}
	for j := 1; j < len(text); j++ {
		c := text[j]
		if c == '$' {
			return text[:j+1], true
		}
		if !isTagChar(c) {
			return "", false
		}
	}
	return "", false
}

func isTagChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
