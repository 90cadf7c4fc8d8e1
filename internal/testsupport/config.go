package testsupport

import (
	"path/filepath"
	"testing"

	"reface/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Pipeline.StageTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGeminiKey sets the Gemini API key on the test config.
func WithGeminiKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.APIKey = key
	}
}

// WithCaptureBaseURL points the capture service client at a test server.
func WithCaptureBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.BaseURL = baseURL
	}
}

// WithNtfyTopic enables notifications against a test endpoint topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
