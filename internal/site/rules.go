package site

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Mode string

const (
	// ModeSSR renders on every request.
	ModeSSR Mode = "ssr"
	// ModePrerender renders once at startup and serves the result until restart.
	ModePrerender Mode = "prerender"
	// ModeStatic renders on the first request and serves the result until restart.
	ModeStatic Mode = "static"
	// ModeISR renders on demand and serves the result for the rule's TTL.
	ModeISR Mode = "isr"
	// ModeClient serves the bare shell, the browser renders everything.
	ModeClient Mode = "client"
)

// Cached reports whether pages in this mode are kept in the page cache.
func (m Mode) Cached() bool {
	return m == ModePrerender || m == ModeStatic || m == ModeISR
}

// Rule is the rendering configuration of a route pattern. Unset fields inherit from less specific
// patterns.
type Rule struct {
	Prerender *bool             `yaml:"prerender,omitempty"`
	Static    *bool             `yaml:"static,omitempty"`
	ISR       *int              `yaml:"isr,omitempty"`
	SSR       *bool             `yaml:"ssr,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

func (r Rule) merge(other Rule) Rule {
	if other.Prerender != nil {
		r.Prerender = other.Prerender
	}
	if other.Static != nil {
		r.Static = other.Static
	}
	if other.ISR != nil {
		r.ISR = other.ISR
	}
	if other.SSR != nil {
		r.SSR = other.SSR
	}
	if len(other.Headers) > 0 {
		headers := maps.Clone(r.Headers)
		if headers == nil {
			headers = map[string]string{}
		}
		maps.Copy(headers, other.Headers)
		r.Headers = headers
	}
	return r
}

// Mode resolves the flags of a merged rule. Client-only wins over everything, then prerender, static
// and ISR.
func (r Rule) Mode() Mode {
	switch {
	case r.SSR != nil && !*r.SSR:
		return ModeClient
	case r.Prerender != nil && *r.Prerender:
		return ModePrerender
	case r.Static != nil && *r.Static:
		return ModeStatic
	case r.ISR != nil && *r.ISR > 0:
		return ModeISR
	default:
		return ModeSSR
	}
}

// TTL is how long an ISR page stays fresh. Zero means forever.
func (r Rule) TTL() time.Duration {
	if r.Mode() != ModeISR {
		return 0
	}
	return time.Duration(*r.ISR) * time.Second
}

type ruleEntry struct {
	pattern string
	rule    Rule
	score   int
}

// Rules matches request paths against route patterns.
//
// Supported patterns:
//
//	/about         exact path
//	/chats/**      /chats itself and anything below it
//	/unsubscribe** anything starting with /unsubscribe
//	/story/*       exactly one segment in place of the star
//
// Every matching pattern applies; more specific patterns override less specific ones.
type Rules struct {
	entries []ruleEntry
}

func NewRules(rules map[string]Rule) *Rules {
	entries := lo.MapToSlice(rules, func(pattern string, rule Rule) ruleEntry {
		return ruleEntry{pattern: pattern, rule: rule, score: specificity(pattern)}
	})

	slices.SortFunc(entries, func(a, b ruleEntry) int {
		if a.score != b.score {
			return a.score - b.score
		}
		return strings.Compare(a.pattern, b.pattern)
	})

	return &Rules{entries: entries}
}

func (r *Rules) Match(path string) Rule {
	path = normalizePath(path)

	var merged Rule
	for _, e := range r.entries {
		if matchPattern(e.pattern, path) {
			merged = merged.merge(e.rule)
		}
	}
	return merged
}

// Prerendered lists the exact patterns whose merged rule prerenders.
func (r *Rules) Prerendered() []string {
	exact := lo.FilterMap(r.entries, func(e ruleEntry, _ int) (string, bool) {
		return e.pattern, !strings.Contains(e.pattern, "*")
	})

	routes := lo.Filter(exact, func(pattern string, _ int) bool {
		return r.Match(pattern).Mode() == ModePrerender
	})
	slices.Sort(routes)

	return routes
}

func specificity(pattern string) int {
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return 2*len(pattern) + 1
	}

	prefix := pattern[:star]
	if strings.HasSuffix(pattern, "/**") {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	return 2 * len(prefix)
}

func matchPattern(pattern, path string) bool {
	switch {
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/")

	case strings.HasSuffix(pattern, "**"):
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "**"))

	case strings.Contains(pattern, "*"):
		want := strings.Split(pattern, "/")
		got := strings.Split(path, "/")
		if len(want) != len(got) {
			return false
		}
		for i := range want {
			if want[i] == "*" {
				if got[i] == "" {
					return false
				}
				continue
			}
			if want[i] != got[i] {
				return false
			}
		}
		return true

	default:
		return normalizePath(pattern) == path
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
