// Package branchfilter decides which branches, pull requests and change sets
// are eligible for change detection.
package branchfilter

import (
	"strings"
	"unicode"

	"github.com/gobwas/glob"
)

// Policy decides what an empty pattern set matches.
type Policy int

const (
	// PassEmpty makes an empty matcher match everything (whitelists).
	PassEmpty Policy = iota
	// FailEmpty makes an empty matcher match nothing (blacklists).
	FailEmpty
)

// maxClassRunes bounds how far a bracket expression is expanded.
const maxClassRunes = 1024

// Matcher matches names against a set of glob patterns. The zero value is an
// empty PassEmpty matcher.
type Matcher struct {
	patterns []pattern
	policy   Policy
}

type pattern struct {
	raw string
	g   glob.Glob // nil when raw is matched literally
}

func (p pattern) match(name string) bool {
	if p.g == nil {
		return p.raw == name
	}
	return p.g.Match(name)
}

// NewMatcher builds a matcher from comma and/or newline separated patterns.
// Blank entries are ignored.
func NewMatcher(spec string, policy Policy) Matcher {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	m := Matcher{policy: policy}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		m.patterns = append(m.patterns, compile(f))
	}
	return m
}

// Empty reports whether the matcher has no patterns.
func (m Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Match reports whether name matches any pattern in full. Matching is case
// sensitive.
func (m Matcher) Match(name string) bool {
	if m.Empty() {
		return m.policy == PassEmpty
	}
	for _, p := range m.patterns {
		if p.match(name) {
			return true
		}
	}
	return false
}

// compile builds a glob where '*' matches any run of characters including
// '/', '?' matches one character and [...] is a shell bracket expression.
// Patterns that do not translate cleanly are kept literal.
func compile(raw string) pattern {
	src, ok := translate(raw)
	if !ok {
		return pattern{raw: raw}
	}
	g, err := glob.Compile(src)
	if err != nil {
		return pattern{raw: raw}
	}
	return pattern{raw: raw, g: g}
}

// translate rewrites shell glob syntax into gobwas/glob syntax. Braces are
// literal in branch patterns and bracket expressions are flattened into the
// single range or character list gobwas understands.
func translate(raw string) (string, bool) {
	rs := []rune(raw)
	var b strings.Builder

	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; c {
		case '*', '?':
			b.WriteRune(c)
		case '\\':
			if i+1 < len(rs) {
				i++
				writeEscaped(&b, rs[i])
			} else {
				writeEscaped(&b, c)
			}
		case '{', '}', ']':
			writeEscaped(&b, c)
		case '[':
			cls, next, ok := parseClass(rs, i+1)
			if !ok {
				return "", false
			}
			b.WriteString(cls)
			i = next
		default:
			b.WriteRune(c)
		}
	}
	return b.String(), true
}

type runeRange struct{ lo, hi rune }

// parseClass reads a bracket expression whose body starts at rs[start] and
// returns its gobwas form and the index of the closing ']'.
func parseClass(rs []rune, start int) (string, int, bool) {
	i := start
	negate := false
	if i < len(rs) && (rs[i] == '!' || rs[i] == '^') {
		negate = true
		i++
	}

	var ranges []runeRange
	first := true
	for ; i < len(rs); i++ {
		c := rs[i]
		if c == ']' && !first {
			return renderClass(ranges, negate, i)
		}
		first = false

		if c == '[' && i+1 < len(rs) && rs[i+1] == ':' {
			end := strings.Index(string(rs[i+2:]), ":]")
			if end < 0 {
				return "", 0, false
			}
			name := string(rs[i+2:])[:end]
			class, ok := posixClasses[name]
			if !ok {
				return "", 0, false
			}
			ranges = append(ranges, class...)
			i += 2 + len([]rune(name)) + 1
			continue
		}

		if c == '\\' && i+1 < len(rs) {
			i++
			c = rs[i]
		}
		lo := c
		if i+2 < len(rs) && rs[i+1] == '-' && rs[i+2] != ']' {
			hi := rs[i+2]
			i += 2
			if hi == '\\' && i+1 < len(rs) {
				i++
				hi = rs[i]
			}
			if hi < lo {
				return "", 0, false
			}
			ranges = append(ranges, runeRange{lo, hi})
			continue
		}
		ranges = append(ranges, runeRange{lo, lo})
	}
	// unclosed
	return "", 0, false
}

func renderClass(ranges []runeRange, negate bool, end int) (string, int, bool) {
	var b strings.Builder

	// gobwas reads a leading '!' as negation and a leading '\' as a range
	// bound, so a single range is only emitted natively when its bounds are
	// safe.
	if len(ranges) == 1 && ranges[0].lo != ranges[0].hi && safeBound(ranges[0].lo) && ranges[0].hi != ']' {
		b.WriteByte('[')
		if negate {
			b.WriteByte('!')
		}
		b.WriteRune(ranges[0].lo)
		b.WriteByte('-')
		b.WriteRune(ranges[0].hi)
		b.WriteByte(']')
		return b.String(), end, true
	}

	seen := make(map[rune]bool)
	var chars []rune
	hasDash := false
	for _, r := range ranges {
		for c := r.lo; c <= r.hi; c++ {
			if seen[c] {
				continue
			}
			seen[c] = true
			if c == '-' {
				hasDash = true
				continue
			}
			chars = append(chars, c)
			if len(chars) > maxClassRunes {
				return "", 0, false
			}
		}
	}

	if len(chars) == 0 {
		// only '-'
		if negate {
			return "[!---]", end, true
		}
		return "-", end, true
	}

	b.WriteByte('[')
	if negate {
		b.WriteByte('!')
	}
	for _, c := range chars {
		writeEscaped(&b, c)
	}
	if hasDash {
		b.WriteString(`\-`)
	}
	b.WriteByte(']')
	return b.String(), end, true
}

func safeBound(r rune) bool {
	return r != '!' && r != '\\' && r != 0
}

func writeEscaped(b *strings.Builder, r rune) {
	b.WriteByte('\\')
	b.WriteRune(r)
}

var posixClasses = map[string][]runeRange{
	"alpha":  {{'A', 'Z'}, {'a', 'z'}},
	"digit":  {{'0', '9'}},
	"alnum":  {{'0', '9'}, {'A', 'Z'}, {'a', 'z'}},
	"upper":  {{'A', 'Z'}},
	"lower":  {{'a', 'z'}},
	"xdigit": {{'0', '9'}, {'A', 'F'}, {'a', 'f'}},
	"space":  {{' ', ' '}, {'\t', '\r'}},
	"blank":  {{' ', ' '}, {'\t', '\t'}},
	"punct":  punctRanges(),
}

func punctRanges() []runeRange {
	var out []runeRange
	for c := rune(0x21); c < 0x7f; c++ {
		if unicode.IsPunct(c) || unicode.IsSymbol(c) {
			out = append(out, runeRange{c, c})
		}
	}
	return out
}
