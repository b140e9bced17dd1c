package ircpresence

import (
	"fmt"
	"regexp"
	"strings"
)

// mask pairs a configured fnmatch-style pattern with the compiled regex that implements it and the
// scansets it selects.
type mask struct {
	pattern string
	re      *regexp.Regexp
	sets    []string
}

// newMask compiles pattern (shell-style glob: '*', '?', '[seq]', '[!seq]') into a mask selecting
// sets whenever a hostmask matches it.
func newMask(pattern string, sets []string) (*mask, error) {
	re, err := regexp.Compile(translateGlob(pattern))
	if err != nil {
		return nil, fmt.Errorf("ircpresence:newMask:%q:%w", pattern, err)
	}
	return &mask{pattern: pattern, re: re, sets: sets}, nil
}

func (m *mask) match(hostmask string) bool {
	return m.re.MatchString(hostmask)
}

// translateGlob turns a shell-style glob into an anchored regexp, matching the semantics of
// Python's fnmatch.translate closely enough for hostmask matching: '*' is any run of characters,
// '?' is exactly one character, and '[...]'/'[!...]' are character classes. Every other character
// is matched literally.
func translateGlob(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s)^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			negate := false
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				negate = true
				j++
			}
			start := j
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				// Unterminated class: treat '[' as a literal, matching fnmatch's fallback.
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			class := string(runes[start:j])
			b.WriteString("[")
			if negate {
				b.WriteString("^")
			}
			b.WriteString(escapeClass(class))
			b.WriteString("]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// escapeClass escapes backslash, the one character that is special inside a Go regexp character
// class but literal inside a glob's. A closing bracket has already ended the class, and a leading
// '!' or '^' has already been consumed as negation by translateGlob.
func escapeClass(class string) string {
	return strings.ReplaceAll(class, `\`, `\\`)
}
