package site

import (
	"net/http"
	"strings"
)

const cspHeader = "Content-Security-Policy"

type Directive struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

type CSP struct {
	Directives []Directive `yaml:"directives"`
	ReportURI  string      `yaml:"reportURI"`
}

// String renders the policy as a header value, directives in configured order.
func (c CSP) String() string {
	parts := make([]string, 0, len(c.Directives)+1)
	for _, d := range c.Directives {
		parts = append(parts, strings.TrimSpace(d.Name+" "+strings.Join(d.Values, " ")))
	}
	if c.ReportURI != "" {
		parts = append(parts, "report-uri "+c.ReportURI)
	}
	return strings.Join(parts, "; ")
}

// Middleware sets the policy on every response, before the handler writes anything.
func (c CSP) Middleware() func(http.Handler) http.Handler {
	value := c.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value != "" {
				w.Header().Set(cspHeader, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
