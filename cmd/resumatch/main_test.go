package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/config"
	"github.com/kailas-cloud/resumatch/internal/domain"
	ingestuc "github.com/kailas-cloud/resumatch/internal/usecase/ingest"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "resumatch ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: 9090
database:
  dsn: postgres://localhost/resumatch
embedding:
  dimensions: 8
  openai:
    api_key: sk-test
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	envName, cfgFile, logLevel = "test", path, ""
	t.Cleanup(func() { envName, cfgFile, logLevel = "", "", "" })

	cfg, logger, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
}

func TestLoadConfig_FlagOverridesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: 9090
database:
  dsn: postgres://localhost/resumatch
embedding:
  dimensions: 8
  openai:
    api_key: sk-test
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	envName, cfgFile, logLevel = "test", path, "debug"
	t.Cleanup(func() { envName, cfgFile, logLevel = "", "", "" })

	_, logger, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("debug must be enabled by --log-level")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	envName, cfgFile = "test", filepath.Join(t.TempDir(), "absent.yaml")
	t.Cleanup(func() { envName, cfgFile = "", "" })

	if _, _, err := loadConfig(); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := newBackend(context.Background(), config.EmbeddingConfig{Backend: "carrier-pigeon"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewBackend_OpenAI(t *testing.T) {
	e, err := newBackend(context.Background(), config.EmbeddingConfig{
		Backend:    config.BackendOpenAI,
		Dimensions: 8,
		OpenAI:     config.OpenAIConfig{APIKey: "sk-test", Model: "text-embedding-3-small"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(domain.HealthChecker); !ok {
		t.Error("openai backend should support health checks")
	}
}

func TestEmbeddingHealthChecker(t *testing.T) {
	if err := (embeddingHealthChecker{embedder: plainEmbedder{}}).HealthCheck(context.Background()); err != nil {
		t.Errorf("backend without health check must pass, got %v", err)
	}

	errDown := errors.New("down")
	err := (embeddingHealthChecker{embedder: checkingEmbedder{err: errDown}}).HealthCheck(context.Background())
	if !errors.Is(err, errDown) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestIngestFormat(t *testing.T) {
	tests := []struct {
		flag, path string
		want       ingestuc.Format
		wantErr    bool
	}{
		{"", "companies.jsonl", ingestuc.FormatJSONL, false},
		{"", "data/Companies.CSV", ingestuc.FormatCSV, false},
		{"jsonl", "companies.csv", ingestuc.FormatJSONL, false},
		{"csv", "dump.txt", ingestuc.FormatCSV, false},
		{"xml", "companies.xml", "", true},
	}
	for _, tc := range tests {
		got, err := ingestFormat(tc.flag, tc.path)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ingestFormat(%q, %q) = %q, %v", tc.flag, tc.path, got, err)
		}
	}
}

func TestNewAssistant_DisabledIsNilInterface(t *testing.T) {
	a, err := newAssistant(context.Background(), config.AssistConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("expected a nil interface, got %T", a)
	}
}

// --- Mocks ---

type plainEmbedder struct{}

func (plainEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, nil
}

type checkingEmbedder struct {
	plainEmbedder
	err error
}

func (c checkingEmbedder) HealthCheck(context.Context) error { return c.err }
