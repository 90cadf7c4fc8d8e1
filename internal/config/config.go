package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ImagesDir string `toml:"images_dir"`
	APIBind   string `toml:"api_bind"`
}

// Gemini contains connection settings and per-step model selection for the
// generation service.
type Gemini struct {
	APIKey            string `toml:"api_key"`
	ExtractionModel   string `toml:"extraction_model"`
	AnalysisModel     string `toml:"analysis_model"`
	SectionImageModel string `toml:"section_image_model"`
	ContentImageModel string `toml:"content_image_model"`
	CodeModel         string `toml:"code_model"`
	ReviewModel       string `toml:"review_model"`
	FixModel          string `toml:"fix_model"`
}

// Capture contains configuration for the external screenshot service.
type Capture struct {
	BaseURL string `toml:"base_url"`
}

// Pipeline contains timing and fan-out settings for the orchestrator.
type Pipeline struct {
	StageTimeoutSeconds     int `toml:"stage_timeout_seconds"`
	ContentImagesPerSection int `toml:"content_images_per_section"`
	ImageEditMaxAttempts    int `toml:"image_edit_max_attempts"`
}

// MinIO contains object storage connection settings.
type MinIO struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// ImageStore selects and configures the generated-image storage backend.
type ImageStore struct {
	Backend       string `toml:"backend"`
	PublicBaseURL string `toml:"public_base_url"`
	MinIO         MinIO  `toml:"minio"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	PlanReady      bool   `toml:"plan_ready"`
	RunCompleted   bool   `toml:"run_completed"`
	RunFailed      bool   `toml:"run_failed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reface.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Gemini: generation service connection and model selection
//   - Capture: screenshot service endpoint
//   - Pipeline: stage timeouts and fan-out sizing
//   - ImageStore: generated-image storage backend (disk or MinIO)
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Gemini        Gemini        `toml:"gemini"`
	Capture       Capture       `toml:"capture"`
	Pipeline      Pipeline      `toml:"pipeline"`
	ImageStore    ImageStore    `toml:"image_store"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reface/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reface/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reface.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ImagesDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GeminiAPIKey returns the configured Gemini key, falling back to the
// GEMINI_API_KEY environment variable.
func (c *Config) GeminiAPIKey() string {
	if key := strings.TrimSpace(c.Gemini.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
