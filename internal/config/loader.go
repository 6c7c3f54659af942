package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// Loader handles configuration loading and parsing.
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.Parse(data)
}

// Parse parses configuration from YAML bytes.
func (l *Loader) Parse(data []byte) (*Config, error) {
	expanded := l.expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables keep the literal so validation reports them in context.
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	if cfg.Policy.URL == "" {
		return fmt.Errorf("policy.url is required")
	}
	if !strings.HasPrefix(cfg.Policy.URL, "http://") && !strings.HasPrefix(cfg.Policy.URL, "https://") {
		return fmt.Errorf("policy.url must start with http:// or https://")
	}

	switch cfg.Credential.Mode {
	case "memory":
	case "http":
		if cfg.Credential.URL == "" {
			return fmt.Errorf("credential.url is required for mode \"http\"")
		}
		if len(cfg.Credential.Secrets) > 0 {
			return fmt.Errorf("credential.secrets cannot be used with mode \"http\"")
		}
	default:
		return fmt.Errorf("invalid credential.mode: %s", cfg.Credential.Mode)
	}

	for i, s := range cfg.Credential.Secrets {
		if s.Ref == "" {
			return fmt.Errorf("credential.secrets[%d]: ref is required", i)
		}
		if s.Value == "" {
			return fmt.Errorf("credential.secrets[%d]: value is required", i)
		}
		if strings.Contains(s.Value, "${") {
			return fmt.Errorf("credential.secrets[%d]: environment variable in value is not set", i)
		}
	}

	aliases := make(map[string]bool)
	for i, u := range cfg.Upstreams {
		if u.BaseURL == "" {
			return fmt.Errorf("upstreams[%d]: base_url is required", i)
		}
		if u.Alias != "" {
			key := u.Tenant.String() + "/" + u.Alias
			if aliases[key] {
				return fmt.Errorf("upstreams[%d]: duplicate alias %q in tenant", i, u.Alias)
			}
			aliases[key] = true
		}
	}

	for i, r := range cfg.Routes {
		if r.PathPattern == "" {
			return fmt.Errorf("routes[%d]: path_pattern is required", i)
		}
		if r.Upstream == "" && r.UpstreamID == uuid.Nil {
			return fmt.Errorf("routes[%d]: upstream alias or upstream_id is required", i)
		}
	}

	return nil
}
