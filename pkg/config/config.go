package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-notebook.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// CORSAllowedOrigins is a comma-separated list of browser origins allowed to call the API.
	CORSAllowedOrigins string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`

	// CookieDomain is the domain for session cookies (optional).
	// If empty, it will be auto-derived from BaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	LLM      LLMConfig      `yaml:"llm"`
	Blob     BlobConfig     `yaml:"blob"`
	Notebook NotebookConfig `yaml:"notebook"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// Issuer is the "iss" claim written into tokens minted by this server.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:"ekaya-notebook"`

	// JWTSecret signs access and refresh tokens (HS256).
	JWTSecret string `yaml:"-" env:"AUTH_JWT_SECRET"` // Secret - not in YAML

	// SessionSecret signs the browser session cookie.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"AUTH_REFRESH_TOKEN_TTL" env-default:"168h"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs for
	// externally issued tokens. Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"notebook"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_notebook"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; token
// revocation falls back to process memory when Host is empty.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LLMConfig holds the AI gateway used by analyze-report.
type LLMConfig struct {
	// Provider selects the client: "openai" (any OpenAI-compatible gateway) or "anthropic".
	Provider string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL  string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model    string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Timeout  time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
}

// IsConfigured returns true if an API key is present.
func (c *LLMConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// BlobConfig holds avatar storage configuration.
type BlobConfig struct {
	// Driver is "s3" or "memory".
	Driver    string `yaml:"driver" env:"BLOB_DRIVER" env-default:"memory"`
	Bucket    string `yaml:"bucket" env:"BLOB_S3_BUCKET" env-default:""`
	Region    string `yaml:"region" env:"BLOB_S3_REGION" env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint" env:"BLOB_S3_ENDPOINT" env-default:""`
	PathStyle bool   `yaml:"path_style" env:"BLOB_S3_PATH_STYLE" env-default:"false"`
	// PublicBaseURL, when set, prefixes avatar keys directly. Otherwise avatars
	// are served through the API at /avatars/{key}.
	PublicBaseURL string `yaml:"public_base_url" env:"BLOB_PUBLIC_BASE_URL" env-default:""`
}

// NotebookConfig holds client-side workspace settings shared by the CLI.
type NotebookConfig struct {
	// EditDebounce is the idle period before buffered section edits are committed.
	EditDebounce time.Duration `yaml:"edit_debounce" env:"NOTEBOOK_EDIT_DEBOUNCE" env-default:"800ms"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads configuration from environment variables only.
// Used by tools that run without a config.yaml next to them.
func LoadFromEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)

	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if c.BaseURL == "" {
		scheme := "http"
		if c.TLSCertPath != "" {
			scheme = "https"
		}
		c.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + c.Port,
		}).String()
	}

	return nil
}

// ValidateSecrets ensures the secrets required to serve requests are present.
// It is called by the server only; the CLI does not need them.
func (c *Config) ValidateSecrets() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// AllowedOrigins returns the parsed CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as required by golang-migrate.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
