package postgres

import (
	"testing"

	"github.com/driftsql/drift/internal/schema"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{"a, b , c", []string{"a", "b", "c"}},
		{"", nil},
		{"  ", nil},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestStripCheckDef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CHECK ((price > 0))", "price > 0"},
		{"CHECK (((a > 0) AND (b > 0)))", "(a > 0) AND (b > 0)"},
		{"CHECK ((status)::text = ANY (ARRAY['a'::text]))", "(status)::text = ANY (ARRAY['a'::text])"},
		{"price > 0", "price > 0"},
	}
	for _, tt := range tests {
		if got := stripCheckDef(tt.in); got != tt.want {
			t.Errorf("stripCheckDef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseArgList(t *testing.T) {
	tests := []struct {
		in   string
		want []schema.FunctionArg
	}{
		{"", nil},
		{"integer, text", []schema.FunctionArg{{Type: "integer"}, {Type: "text"}}},
		{"uid integer, label text", []schema.FunctionArg{
			{Name: "uid", Type: "integer"}, {Name: "label", Type: "text"}}},
	}
	for _, tt := range tests {
		got := parseArgList(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseArgList(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseArgList(%q)[%d] = %+v, want %+v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"users", "users", true},
		{"users", "Users", true},
		{"user*", "user_roles", true},
		{"*_log", "audit_log", true},
		{"u?er", "user", true},
		{"u?er", "ussser", false},
		{"*", "anything", true},
	}
	for _, tt := range tests {
		got, _ := matchGlob(tt.pattern, tt.name)
		if got != tt.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}
