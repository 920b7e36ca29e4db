// Package runtime provides execution-support services for the rawk
// engine: regex compilation and caching, the output-stream registry,
// and the partitionable input source.
package runtime

import (
	"strings"
	"sync"

	"github.com/coregx/coregex"
)

// dotallPrefix is prepended to patterns for AWK semantics (dot matches newline).
const dotallPrefix = "(?s)"

// RegexConfig controls regex behavior.
type RegexConfig struct {
	// POSIX enables leftmost-longest matching (AWK/POSIX ERE semantics).
	// When false, uses leftmost-first matching (faster, Perl-like).
	POSIX bool
}

// DefaultRegexConfig returns the default POSIX-compliant configuration.
func DefaultRegexConfig() RegexConfig {
	return RegexConfig{POSIX: true}
}

// Regex wraps coregex for the engine's regex instructions.
type Regex struct {
	re *coregex.Regexp
}

// CompileRegex creates a new Regex with the given configuration.
// AWK semantics: dot matches any character including newlines.
func CompileRegex(pattern string, config RegexConfig) (*Regex, error) {
	re, err := coregex.Compile(dotallPrefix + pattern)
	if err != nil {
		return nil, err
	}
	if config.POSIX {
		re.Longest()
	}
	return &Regex{re: re}, nil
}

// MatchString reports whether s contains any match.
func (r *Regex) MatchString(s string) bool {
	return r.re.MatchString(s)
}

// FindStringIndex returns the start and end of the first match, or nil.
func (r *Regex) FindStringIndex(s string) []int {
	return r.re.FindStringIndex(s)
}

// Substitute replaces the first match (or every match when global is
// set) with repl, expanding & to the matched text; \& and \\ escape.
// Returns the result and the number of replacements.
func (r *Regex) Substitute(s, repl string, global bool) (string, int) {
	var sb strings.Builder
	n := 0
	pos := 0
	for pos <= len(s) {
		loc := r.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		lo, hi := pos+loc[0], pos+loc[1]
		sb.WriteString(s[pos:lo])
		expandRepl(&sb, repl, s[lo:hi])
		n++
		if hi == lo {
			// Empty match: emit the next byte and step past it so the
			// scan always advances.
			if lo < len(s) {
				sb.WriteByte(s[lo])
			}
			pos = lo + 1
		} else {
			pos = hi
		}
		if !global {
			break
		}
	}
	if pos < len(s) {
		sb.WriteString(s[pos:])
	}
	if n == 0 {
		return s, 0
	}
	return sb.String(), n
}

func expandRepl(sb *strings.Builder, repl, match string) {
	for i := 0; i < len(repl); i++ {
		switch {
		case repl[i] == '&':
			sb.WriteString(match)
		case repl[i] == '\\' && i+1 < len(repl) && (repl[i+1] == '&' || repl[i+1] == '\\'):
			i++
			sb.WriteByte(repl[i])
		default:
			sb.WriteByte(repl[i])
		}
	}
}

// Split slices s into substrings separated by matches.
func (r *Regex) Split(s string, n int) []string {
	return r.re.Split(s, n)
}

// RegexCache provides compiled regex caching with FIFO eviction for
// dynamic patterns. Caches are per-thread memoization: they are never
// shared across workers, so duplication costs recompilation only.
type RegexCache struct {
	cache   sync.Map   // map[string]*Regex - lock-free reads
	orderMu sync.Mutex // Protects order slice for eviction
	order   []string   // FIFO order for eviction
	size    int32
	maxSize int
	config  RegexConfig
}

// NewRegexCache creates a cache with the specified max size and config.
func NewRegexCache(maxSize int, config RegexConfig) *RegexCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RegexCache{
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		config:  config,
	}
}

// Get returns a compiled regex, compiling and caching if needed.
func (c *RegexCache) Get(pattern string) (*Regex, error) {
	if re, ok := c.cache.Load(pattern); ok {
		return re.(*Regex), nil
	}

	re, err := CompileRegex(pattern, c.config)
	if err != nil {
		return nil, err
	}

	if existing, loaded := c.cache.LoadOrStore(pattern, re); loaded {
		return existing.(*Regex), nil
	}

	c.orderMu.Lock()
	c.order = append(c.order, pattern)
	c.size++

	// Evict oldest if at capacity (FIFO - good enough for AWK workloads)
	for int(c.size) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.cache.Delete(oldest)
		c.size--
	}
	c.orderMu.Unlock()

	return re, nil
}

// Len returns the approximate number of cached regexes.
func (c *RegexCache) Len() int {
	c.orderMu.Lock()
	n := int(c.size)
	c.orderMu.Unlock()
	return n
}

// Config returns the cache's regex configuration.
func (c *RegexCache) Config() RegexConfig {
	return c.config
}
