package query

import (
	"fmt"
	"strings"
)

// globMatcher matches paths against a shell-style pattern.
//
// Matching is case-insensitive. `*` matches any run of characters except the
// path separator, `**` matches across separators, `?` matches one character,
// and `[...]` matches a character class with ranges and `!`/`^` negation. A
// pattern without a separator is matched against the file name; a pattern
// containing one is matched against the full path.
type globMatcher struct {
	pattern  []rune
	basename bool
}

func compileGlob(pattern string) (*globMatcher, error) {
	if err := validateGlob(pattern); err != nil {
		return nil, err
	}
	return &globMatcher{
		pattern:  []rune(strings.ToLower(pattern)),
		basename: !strings.ContainsRune(pattern, '/'),
	}, nil
}

func (m *globMatcher) Match(path string) bool {
	s := strings.ToLower(path)
	if m.basename {
		if i := strings.LastIndexByte(s, '/'); i >= 0 {
			s = s[i+1:]
		}
	}
	return matchGlob(m.pattern, []rune(s))
}

// validateGlob rejects patterns that cannot be interpreted, currently an
// unterminated character class.
func validateGlob(pattern string) error {
	inClass := false
	for _, r := range pattern {
		switch {
		case inClass && r == ']':
			inClass = false
		case !inClass && r == '[':
			inClass = true
		}
	}
	if inClass {
		return fmt.Errorf("unterminated character class in %q", pattern)
	}
	return nil
}

func matchGlob(pattern, s []rune) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			star := 1
			for star < len(pattern) && pattern[star] == '*' {
				star++
			}
			rest := pattern[star:]
			if star > 1 {
				// ** crosses path separators.
				for i := 0; i <= len(s); i++ {
					if matchGlob(rest, s[i:]) {
						return true
					}
				}
				return false
			}
			for i := 0; ; i++ {
				if matchGlob(rest, s[i:]) {
					return true
				}
				if i >= len(s) || s[i] == '/' {
					return false
				}
			}
		case '?':
			if len(s) == 0 || s[0] == '/' {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			rest, ok := matchClass(pattern, s[0])
			if !ok {
				return false
			}
			pattern, s = rest, s[1:]
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		}
	}
	return len(s) == 0
}

// matchClass matches r against the class starting at pattern[0] == '[' and
// returns the pattern remainder after the closing bracket.
func matchClass(pattern []rune, r rune) ([]rune, bool) {
	i := 1
	negate := false
	if i < len(pattern) && (pattern[i] == '!' || pattern[i] == '^') {
		negate = true
		i++
	}
	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		lo := pattern[i]
		hi := lo
		if i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']' {
			hi = pattern[i+2]
			i += 3
		} else {
			i++
		}
		if lo <= r && r <= hi {
			matched = true
		}
	}
	if i >= len(pattern) {
		return nil, false // unterminated, rejected by validateGlob already
	}
	return pattern[i+1:], matched != negate
}
