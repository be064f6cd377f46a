package site

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaults []byte

var ErrInvalidConfig = errors.New("invalid site config")

type PrerenderConfig struct {
	// Routes are prerendered in addition to the prerender rules.
	Routes []string `yaml:"routes"`
	// Ignore drops routes starting with any of these prefixes.
	Ignore []string `yaml:"ignore"`
}

type Config struct {
	Routes    map[string]Rule `yaml:"routes"`
	Prerender PrerenderConfig `yaml:"prerender"`
	Head      Head            `yaml:"head"`
	CSP       CSP             `yaml:"csp"`
}

// LoadConfig reads the site config from path, or the built-in one when path is empty.
func LoadConfig(path string) (*Config, error) {
	raw := defaults
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for pattern, rule := range cfg.Routes {
		if pattern == "" || pattern[0] != '/' {
			return nil, fmt.Errorf("%w: route %q must start with /", ErrInvalidConfig, pattern)
		}
		if rule.ISR != nil && *rule.ISR < 0 {
			return nil, fmt.Errorf("%w: route %q has a negative isr", ErrInvalidConfig, pattern)
		}
	}

	return cfg, nil
}
