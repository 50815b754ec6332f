package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Storage       StorageConfig       `toml:"storage"`
	Logging       LoggingConfig       `toml:"logging"`
	Schema        SchemaConfig        `toml:"schema"`
	Template      TemplateConfig      `toml:"template"`
	Extraction    ExtractionConfig    `toml:"extraction"`
	Claude        ClaudeConfig        `toml:"claude"`
	Gemini        GeminiConfig        `toml:"gemini"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Converter     ConverterConfig     `toml:"converter"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger    BadgerConfig    `toml:"badger"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ArtifactsConfig locates the per-job artifact namespace root.
type ArtifactsConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SchemaConfig locates the extraction rules workbook. The schema is loaded
// once at startup; a missing or malformed workbook is fatal.
type SchemaConfig struct {
	Path  string `toml:"path" validate:"required"`
	Sheet string `toml:"sheet"`
}

// TemplateConfig locates the report template document.
type TemplateConfig struct {
	Path string `toml:"path" validate:"required"`
	// NotFoundText is rendered for fields the model could not extract.
	NotFoundText string `toml:"not_found_text"`
}

// ExtractionConfig controls the extraction engine's provider selection and
// retry policy. Retries apply only to transport-level model failures.
type ExtractionConfig struct {
	Provider          string `toml:"provider" validate:"oneof=claude gemini"`
	MaxAttempts       int    `toml:"max_attempts" validate:"gte=1"`
	RetryBackoff      string `toml:"retry_backoff"`       // e.g. "2s", doubled per attempt
	RequestsPerMinute int    `toml:"requests_per_minute"` // model endpoint pacing (0 = unlimited)
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// TranscriptionConfig configures the external speech-to-text collaborator.
// A missing API key fails audio jobs at normalize time, never startup.
type TranscriptionConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Timeout      string `toml:"timeout"`
	PollInterval string `toml:"poll_interval"`
}

// ConverterConfig selects the document conversion engine: "libreoffice"
// shells out to the external binary, "builtin" renders text with fpdf for
// hosts without LibreOffice.
type ConverterConfig struct {
	Engine  string `toml:"engine" validate:"oneof=libreoffice builtin"`
	Binary  string `toml:"binary"`
	Timeout string `toml:"timeout"`
}

// PipelineConfig bounds each long-running external stage. A zero value
// disables the bound for that stage.
type PipelineConfig struct {
	NormalizeTimeout string `toml:"normalize_timeout"`
	ExtractTimeout   string `toml:"extract_timeout"`
	ConvertTimeout   string `toml:"convert_timeout"`
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger:    BadgerConfig{Path: "./data/scribo"},
			Artifacts: ArtifactsConfig{Dir: "./data/artifacts"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Schema: SchemaConfig{
			Path:  "./files/extraction_rules.xlsx",
			Sheet: "Extraction Fields",
		},
		Template: TemplateConfig{
			Path:         "./files/report_template.docx",
			NotFoundText: "Not Available",
		},
		Extraction: ExtractionConfig{
			Provider:          "claude",
			MaxAttempts:       3,
			RetryBackoff:      "2s",
			RequestsPerMinute: 30,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			Timeout:   "120s",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "120s",
		},
		Transcription: TranscriptionConfig{
			BaseURL:      "https://api.assemblyai.com",
			Timeout:      "10m",
			PollInterval: "3s",
		},
		Converter: ConverterConfig{
			Engine:  "libreoffice",
			Binary:  "libreoffice",
			Timeout: "2m",
		},
		Pipeline: PipelineConfig{
			NormalizeTimeout: "15m",
			ExtractTimeout:   "10m",
			ConvertTimeout:   "5m",
		},
	}
}

// LoadConfig loads configuration in priority order: defaults, then the TOML
// file (if present), then environment overrides. The resolved configuration
// is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides maps credential and path environment variables onto the
// configuration. Credentials are expected via environment in deployments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		cfg.Transcription.APIKey = v
	}
	if v := os.Getenv("SCRIBO_SCHEMA_PATH"); v != "" {
		cfg.Schema.Path = v
	}
	if v := os.Getenv("SCRIBO_TEMPLATE_PATH"); v != "" {
		cfg.Template.Path = v
	}
}

// ApplyFlagOverrides applies command-line overrides (highest priority).
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// ParseDurationOr parses s as a duration, falling back to def when s is
// empty or unparseable.
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
