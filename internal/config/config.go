// Package config defines the gateway configuration file format and loader.
// Files are YAML with ${VAR} environment expansion.
package config

import (
	"time"

	"github.com/google/uuid"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Policy     PolicyConfig     `yaml:"policy"`
	Credential CredentialConfig `yaml:"credential"`
	Transport  TransportConfig  `yaml:"transport"`

	// Seed entities are loaded into the control plane at startup. They go
	// through the same validation as API writes.
	Tenants   []TenantConfig   `yaml:"tenants"`
	Upstreams []UpstreamConfig `yaml:"upstreams"`
	Routes    []RouteConfig    `yaml:"routes"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	AdminAddress string        `yaml:"admin_address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// MaxBodyBytes bounds inbound request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig configures inbound caller authentication.
type AuthConfig struct {
	// JWTSecret enables bearer token verification when set. Tokens carry
	// tenant_id and sub claims.
	JWTSecret string `yaml:"jwt_secret"`

	// TrustHeaders accepts X-Tenant-Id and X-Subject-Id headers instead of
	// a token. Only for deployments behind an authenticating front proxy.
	TrustHeaders bool `yaml:"trust_headers"`
}

// PolicyConfig configures the external policy decision point.
type PolicyConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialConfig configures credential resolution. Mode "http" uses a
// remote credential store; mode "memory" serves the static secrets below.
type CredentialConfig struct {
	Mode    string        `yaml:"mode"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	Secrets []SecretConfig `yaml:"secrets"`
}

// SecretConfig is a statically configured secret for memory mode. Values
// normally arrive via ${VAR} expansion rather than literals in the file.
type SecretConfig struct {
	Tenant uuid.UUID `yaml:"tenant_id"`
	Ref    string    `yaml:"ref"`
	Value  string    `yaml:"value"`
}

// TenantConfig declares a tenant hierarchy edge for memory-mode resolution.
type TenantConfig struct {
	ID     uuid.UUID `yaml:"id"`
	Parent uuid.UUID `yaml:"parent_id"`
}

// TransportConfig overrides outbound transport tuning. Zero fields keep
// the defaults.
type TransportConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout"`
	DisableKeepAlives   bool          `yaml:"disable_keep_alives"`
	InsecureSkipVerify  bool          `yaml:"insecure_skip_verify"`
}

// UpstreamConfig is a seeded upstream.
type UpstreamConfig struct {
	ID            uuid.UUID     `yaml:"id"`
	Alias         string        `yaml:"alias"`
	Tenant        uuid.UUID     `yaml:"tenant_id"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	CredentialRef string        `yaml:"credential_ref"`
}

// RouteConfig is a seeded route. Upstream references the upstream by alias
// or by ID; alias wins when both are set.
type RouteConfig struct {
	ID            uuid.UUID `yaml:"id"`
	Tenant        uuid.UUID `yaml:"tenant_id"`
	Upstream      string    `yaml:"upstream"`
	UpstreamID    uuid.UUID `yaml:"upstream_id"`
	Methods       []string  `yaml:"methods"`
	PathPattern   string    `yaml:"path_pattern"`
	RewritePrefix string    `yaml:"rewrite_prefix"`
}

// DefaultConfig returns the configuration defaults applied before the file
// is unmarshalled over them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:       ":8080",
			AdminAddress:  ":9090",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   120 * time.Second,
			MaxBodyBytes:  32 << 20,
			ShutdownGrace: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Policy: PolicyConfig{
			Timeout: 5 * time.Second,
		},
		Credential: CredentialConfig{
			Mode:    "memory",
			Timeout: 5 * time.Second,
		},
	}
}
