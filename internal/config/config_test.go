package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{DSN: "postgres://localhost/resumatch"},
		Embedding: EmbeddingConfig{
			Dimensions: 1536,
			OpenAI:     OpenAIConfig{APIKey: "sk-test"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Embedding.Backend != BackendOpenAI {
		t.Errorf("backend = %q", cfg.Embedding.Backend)
	}
	r := cfg.Embedding.Retry
	if r.MaxAttempts != 5 || r.BaseDelay() != 2*time.Second || r.Multiplier != 2 {
		t.Errorf("retry defaults = %+v", r)
	}
	if cfg.Access.AnonymousLimit != 3 || cfg.Access.AuthenticatedLimit != 100 {
		t.Errorf("access defaults = %+v", cfg.Access)
	}
	if cfg.Auth.JWKSTTLSec != 3600 || cfg.Auth.MinRefreshSec != 30 {
		t.Errorf("jwks defaults = %+v", cfg.Auth)
	}
	if cfg.Auth.CookieName != "idToken" {
		t.Errorf("cookie name = %q", cfg.Auth.CookieName)
	}
	if len(cfg.HTTP.CORSOrigins) != 3 {
		t.Errorf("cors origins = %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Assist.Enabled() || cfg.Assist.Model != "amazon.titan-text-premier-v1:0" || cfg.Assist.MaxTokens != 1024 ||
		cfg.Assist.RewriteTemperature != 0.4 || cfg.Assist.LetterTemperature != 0.5 {
		t.Errorf("assist defaults = %+v", cfg.Assist)
	}
	if cfg.Database.Distance != "cosine" || cfg.Database.MaxIdleConns != cfg.Database.MaxOpenConns {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"distance", func(c *Config) { c.Database.Distance = "l2" }, "database.distance"},
		{"dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"backend", func(c *Config) { c.Embedding.Backend = "cohere" }, "embedding.backend"},
		{"openai key", func(c *Config) { c.Embedding.OpenAI.APIKey = "" }, "embedding.openai.api_key"},
		{"bedrock region", func(c *Config) { c.Embedding.Backend = BackendBedrock }, "embedding.bedrock.region"},
		{"gemini key", func(c *Config) { c.Embedding.Backend = BackendGemini }, "embedding.gemini.api_key"},
		{"local url", func(c *Config) { c.Embedding.Backend = BackendLocal }, "embedding.local.base_url"},
		{"multiplier", func(c *Config) { c.Embedding.Retry.Multiplier = 0.5 }, "embedding.retry.multiplier"},
		{"budget action", func(c *Config) { c.Embedding.Budget.Action = "block" }, "embedding.budget.action"},
		{"tiers", func(c *Config) { c.Access.AuthenticatedLimit = 2 }, "access.authenticated_limit"},
		{"auth audience", func(c *Config) {
			c.Auth.JWKSURL = "https://idp.example.com/pool/.well-known/jwks.json"
		}, "auth.audience"},
		{"auth issuer", func(c *Config) {
			c.Auth.JWKSURL = "https://idp.example.com/keys"
			c.Auth.Audience = "client-id"
		}, "auth.issuer"},
		{"assist temperature", func(c *Config) { c.Assist.LetterTemperature = 1.5 }, "assist.rewrite_temperature"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_AuthWithWellKnownURLNeedsNoIssuer(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWKSURL = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc/.well-known/jwks.json"
	cfg.Auth.Audience = "client-id"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("RESUMATCH_TEST_KEY", "sk-from-env")

	cfg, err := Parse([]byte(`
http:
  port: 9090
database:
  dsn: ${RESUMATCH_TEST_DSN:-postgres://db/resumatch}
embedding:
  backend: openai
  dimensions: 1024
  openai:
    api_key: ${RESUMATCH_TEST_KEY}
    model: text-embedding-3-small
  retry:
    max_attempts: 3
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.DSN != "postgres://db/resumatch" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Embedding.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Embedding.OpenAI.APIKey)
	}
	if cfg.Embedding.Retry.MaxAttempts != 3 || cfg.Embedding.Retry.BaseDelayMs != 2000 {
		t.Errorf("retry = %+v", cfg.Embedding.Retry)
	}
	if cfg.Embedding.Model() != "text-embedding-3-small" {
		t.Errorf("model = %q", cfg.Embedding.Model())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBudgetEnabled(t *testing.T) {
	if (BudgetConfig{}).Enabled() {
		t.Error("zero budget must be disabled")
	}
	if !(BudgetConfig{MonthlyTokenLimit: 1}).Enabled() {
		t.Error("monthly limit must enable the budget")
	}
}

func TestParse_CORSOriginsSplitOnComma(t *testing.T) {
	t.Setenv("TEST_CORS_ORIGIN", "https://a.example, https://b.example,")
	cfg, err := Parse([]byte(`
database:
  dsn: postgres://localhost/resumatch
embedding:
  backend: openai
  dimensions: 1024
  openai:
    api_key: sk-test
http:
  cors_origins:
    - ${TEST_CORS_ORIGIN}
    - https://c.example
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://a.example", "https://b.example", "https://c.example"}
	if !reflect.DeepEqual(cfg.HTTP.CORSOrigins, want) {
		t.Errorf("cors origins = %v, want %v", cfg.HTTP.CORSOrigins, want)
	}
}
