package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Embedding backends.
const (
	BackendOpenAI  = "openai"
	BackendBedrock = "bedrock"
	BackendGemini  = "gemini"
	BackendLocal   = "local"
)

// Config holds the resumatch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Assist    AssistConfig    `yaml:"assist"`
	Auth      AuthConfig      `yaml:"auth"`
	Access    AccessConfig    `yaml:"access"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
	// CORSOrigins are the browser origins allowed to call the API with credentials.
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds the corpus store settings.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	AcquireTimeoutMs   int    `yaml:"acquire_timeout_ms"`
	QueryTimeoutMs     int    `yaml:"query_timeout_ms"`
	Distance           string `yaml:"distance"` // cosine (default) | inner_product
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
	AutoMigrate        bool   `yaml:"auto_migrate"`
}

// RedisConfig holds budget persistence settings. Empty addrs disables it.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Backend    string        `yaml:"backend"`
	Dimensions int           `yaml:"dimensions"`
	Retry      RetryConfig   `yaml:"retry"`
	Budget     BudgetConfig  `yaml:"budget"`
	OpenAI     OpenAIConfig  `yaml:"openai"`
	Bedrock    BedrockConfig `yaml:"bedrock"`
	Gemini     GeminiConfig  `yaml:"gemini"`
	Local      LocalConfig   `yaml:"local"`
}

// RetryConfig holds the throttling backoff policy.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// BedrockConfig holds AWS Bedrock settings. Credentials come from the AWS chain.
type BedrockConfig struct {
	Region string `yaml:"region"`
	Model  string `yaml:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LocalConfig holds a self-hosted OpenAI-compatible embedding server.
type LocalConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Token   string `yaml:"token"`
}

// AssistConfig holds the Bedrock text model behind the résumé rewrite and
// cover letter routes. Empty region disables both routes.
type AssistConfig struct {
	Region      string  `yaml:"region"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float64 `yaml:"top_p"`

	// Sampling temperatures per task. Zero falls back to the default.
	RewriteTemperature float64 `yaml:"rewrite_temperature"`
	LetterTemperature  float64 `yaml:"letter_temperature"`
}

// Enabled reports whether the assist routes are served.
func (a AssistConfig) Enabled() bool { return a.Region != "" }

// AuthConfig holds identity provider settings. Empty jwks_url disables auth,
// so every caller is anonymous.
type AuthConfig struct {
	JWKSURL       string `yaml:"jwks_url"`
	JWKSTTLSec    int    `yaml:"jwks_ttl_sec"`
	MinRefreshSec int    `yaml:"jwks_min_refresh_sec"`
	// Issuer defaults to jwks_url without /.well-known/jwks.json.
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	CookieName string `yaml:"cookie_name"`
}

// AccessConfig holds the result-set tiers.
type AccessConfig struct {
	AnonymousLimit     int `yaml:"anonymous_limit"`
	AuthenticatedLimit int `yaml:"authenticated_limit"`
}

// IngestConfig holds corpus loading settings.
type IngestConfig struct {
	Workers  int `yaml:"workers"`
	LogEvery int `yaml:"batch_log_every"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// covers a full retry schedule (2+4+8+16s) plus the search
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 10
	}
	c.HTTP.CORSOrigins = splitList(c.HTTP.CORSOrigins)
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:3001"}
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = c.Database.MaxOpenConns
	}
	if c.Database.ConnMaxLifetimeSec <= 0 {
		c.Database.ConnMaxLifetimeSec = 1800
	}
	if c.Database.AcquireTimeoutMs <= 0 {
		c.Database.AcquireTimeoutMs = 2000
	}
	if c.Database.QueryTimeoutMs <= 0 {
		c.Database.QueryTimeoutMs = 5000
	}
	if c.Database.Distance == "" {
		c.Database.Distance = "cosine"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.Backend == "" {
		c.Embedding.Backend = BackendOpenAI
	}
	if c.Embedding.Retry.MaxAttempts <= 0 {
		c.Embedding.Retry.MaxAttempts = 5
	}
	if c.Embedding.Retry.BaseDelayMs <= 0 {
		c.Embedding.Retry.BaseDelayMs = 2000
	}
	if c.Embedding.Retry.Multiplier <= 0 {
		c.Embedding.Retry.Multiplier = 2
	}

	if c.Auth.JWKSTTLSec <= 0 {
		c.Auth.JWKSTTLSec = 3600
	}
	if c.Auth.MinRefreshSec <= 0 {
		c.Auth.MinRefreshSec = 30
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "idToken"
	}

	if c.Assist.Model == "" {
		c.Assist.Model = "amazon.titan-text-premier-v1:0"
	}
	if c.Assist.MaxTokens <= 0 {
		c.Assist.MaxTokens = 1024
	}
	if c.Assist.TopP <= 0 {
		c.Assist.TopP = 0.9
	}
	if c.Assist.RewriteTemperature == 0 {
		c.Assist.RewriteTemperature = 0.4
	}
	if c.Assist.LetterTemperature == 0 {
		c.Assist.LetterTemperature = 0.5
	}

	if c.Access.AnonymousLimit <= 0 {
		c.Access.AnonymousLimit = 3
	}
	if c.Access.AuthenticatedLimit <= 0 {
		c.Access.AuthenticatedLimit = 100
	}

	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.LogEvery <= 0 {
		c.Ingest.LogEvery = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Database.Distance {
	case "cosine", "inner_product":
	default:
		return fmt.Errorf("database.distance must be \"cosine\" or \"inner_product\", got %q", c.Database.Distance)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if err := c.Embedding.validateBackend(); err != nil {
		return err
	}
	if c.Embedding.Retry.Multiplier < 1 {
		return fmt.Errorf("embedding.retry.multiplier must be >= 1, got %v", c.Embedding.Retry.Multiplier)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action,
		)
	}
	if err := c.Auth.validate(); err != nil {
		return err
	}
	if !unitInterval(c.Assist.RewriteTemperature) || !unitInterval(c.Assist.LetterTemperature) || c.Assist.TopP > 1 {
		return fmt.Errorf("assist.rewrite_temperature, assist.letter_temperature and assist.top_p must be within [0,1]")
	}
	if c.Access.AuthenticatedLimit < c.Access.AnonymousLimit {
		return fmt.Errorf("access.authenticated_limit %d must not be below access.anonymous_limit %d",
			c.Access.AuthenticatedLimit, c.Access.AnonymousLimit)
	}
	return nil
}

func (e *EmbeddingConfig) validateBackend() error {
	switch e.Backend {
	case BackendOpenAI:
		if e.OpenAI.APIKey == "" {
			return fmt.Errorf("embedding.openai.api_key is required")
		}
	case BackendBedrock:
		if e.Bedrock.Region == "" {
			return fmt.Errorf("embedding.bedrock.region is required")
		}
	case BackendGemini:
		if e.Gemini.APIKey == "" {
			return fmt.Errorf("embedding.gemini.api_key is required")
		}
	case BackendLocal:
		if e.Local.BaseURL == "" {
			return fmt.Errorf("embedding.local.base_url is required")
		}
	default:
		return fmt.Errorf("embedding.backend must be one of openai, bedrock, gemini, local; got %q", e.Backend)
	}
	return nil
}

// validate requires an audience and an issuer whenever tokens are checked.
// The issuer may be left out when jwks_url is a well-known JWKS location.
func (a *AuthConfig) validate() error {
	if a.JWKSURL == "" {
		return nil
	}
	if a.Audience == "" {
		return fmt.Errorf("auth.audience is required when auth.jwks_url is set")
	}
	if a.Issuer == "" && !strings.HasSuffix(a.JWKSURL, "/.well-known/jwks.json") {
		return fmt.Errorf("auth.issuer is required when auth.jwks_url is not a /.well-known/jwks.json URL")
	}
	return nil
}

// Model returns the configured model of the active backend.
func (e *EmbeddingConfig) Model() string {
	switch e.Backend {
	case BackendBedrock:
		return e.Bedrock.Model
	case BackendGemini:
		return e.Gemini.Model
	case BackendLocal:
		return e.Local.Model
	default:
		return e.OpenAI.Model
	}
}

// BaseDelay returns the retry base delay.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func unitInterval(v float64) bool { return v >= 0 && v <= 1 }

// splitList splits comma-separated entries so one env var can carry several
// values. Blank entries are dropped.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
