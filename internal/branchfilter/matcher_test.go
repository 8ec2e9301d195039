package branchfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_EmptyPolicy(t *testing.T) {
	assert.True(t, NewMatcher("", PassEmpty).Match("anything"))
	assert.False(t, NewMatcher("", FailEmpty).Match("anything"))
	assert.False(t, NewMatcher(" , \n ,", FailEmpty).Match("anything"), "blank entries are ignored")
	assert.True(t, NewMatcher(" , \n ,", PassEmpty).Empty())
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns string
		input    string
		want     bool
	}{
		{"exact", "main", "main", true},
		{"no substring match", "main", "main-old", false},
		{"no prefix match", "feature", "feature/login", false},
		{"case sensitive", "Main", "main", false},
		{"star", "feature/*", "feature/login", true},
		{"star spans slashes", "release-*", "release-1.2/hotfix", true},
		{"star alone", "*", "any/branch/name", true},
		{"question mark", "v?", "v1", true},
		{"question mark single char", "v?", "v10", false},
		{"character class", "hotfix-[0-9]", "hotfix-7", true},
		{"negated class", "hotfix-[!0-9]", "hotfix-x", true},
		{"negated class miss", "hotfix-[!0-9]", "hotfix-7", false},
		{"comma separated", "main, develop", "develop", true},
		{"newline separated", "main\ndevelop\r\nrelease/*", "release/2", true},
		{"regex metacharacters are literal", "fix.1", "fixx1", false},
		{"dot literal match", "fix.1", "fix.1", true},
		{"malformed degrades to literal", "feat[ure", "feat[ure", true},
		{"malformed no glob semantics", "feat[ure*", "feat[ure-x", false},
		{"posix class", "[[:alpha:]]x", "ax", true},
		{"posix class miss", "[[:alpha:]]x", "1x", false},
		{"posix digit class", "v[[:digit:]]*", "v2.0", true},
		{"unknown posix class is literal", "[[:nope:]]", "[[:nope:]]", true},
		{"leading bracket is a member", "[]]x", "]x", true},
		{"leading bracket negated", "[!]]x", "]x", false},
		{"multiple ranges", "hotfix-[a-cx-z]", "hotfix-y", true},
		{"multiple ranges miss", "hotfix-[a-cx-z]", "hotfix-m", false},
		{"negated list", "[!abc]-1", "d-1", true},
		{"negated list miss", "[!abc]-1", "b-1", false},
		{"caret negates", "[^abc]-1", "b-1", false},
		{"dash member", "rc[-_]1", "rc-1", true},
		{"dash only class", "a[-]b", "a-b", true},
		{"escaped star is literal", `feature\*`, "feature*", true},
		{"escaped star no wildcard", `feature\*`, "feature-x", false},
		{"braces are literal", "rel-{a}", "rel-{a}", true},
		{"double star", "**/fix", "a/b/fix", true},
		{"reversed range is literal", "[z-a]", "[z-a]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.patterns, FailEmpty)
			assert.Equal(t, tt.want, m.Match(tt.input))
		})
	}
}
