// matcher/matcher.go
package matcher

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1024

// Matcher wraps a compiled, case-insensitive regular expression.
type Matcher struct {
	re *regexp.Regexp
}

// Compile builds a case-insensitive matcher from a rule pattern.
// A pattern that does not compile must be rejected here, at rule-creation
// time, so a bad rule can never start failing mid-pipeline on live messages.
func Compile(pattern string) (*Matcher, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return &Matcher{re: re}, nil
}

// Matches reports whether the text matches. Pure, no side effects.
func (m *Matcher) Matches(text string) bool {
	return m.re.MatchString(text)
}

// Cache memoizes compiled matchers keyed by pattern text. Rule patterns are
// immutable for the rule's lifetime, so a cached matcher can never go stale
// even though the rule list itself is re-read on every message.
type Cache struct {
	compiled *lru.Cache[string, *Matcher]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	compiled, err := lru.New[string, *Matcher](size)
	if err != nil {
		return nil, err
	}
	return &Cache{compiled: compiled}, nil
}

// Get returns the compiled matcher for pattern, compiling on first use.
func (c *Cache) Get(pattern string) (*Matcher, error) {
	if m, ok := c.compiled.Get(pattern); ok {
		return m, nil
	}
	m, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled.Add(pattern, m)
	return m, nil
}
