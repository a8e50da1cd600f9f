package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults.
//
// Environment Variables:
// Server:
// - HTTP_ADDR: listen address (default: :8080)
// - MAX_UPLOAD_MB: maximum upload size in MiB (default: 16)
// - WEB_UI_ENABLED: serve the bundled web UI (default: true)
// - WEB_STATIC_DIR: directory holding the web UI assets (default: web)
//
// Paths:
// - UPLOAD_DIR: uploaded documents (default: uploads)
// - OUTPUT_DIR: rendered artifacts (default: outputs)
// - WORK_DIR: per-job scratch space for decomposed pages (default: work)
// - DB_PATH: SQLite job store (default: data/jobs.db)
// - FONT_PATH: TTF/OTF used for bubble text; empty uses the embedded Go font
//
// Detector:
// - DETECTOR_URL: bubble detection sidecar base URL (default: http://localhost:8000)
// - DETECTOR_TIMEOUT: request timeout in seconds (default: 60)
// - DETECTOR_CONF_THRESHOLD: minimum detection confidence (default: 0.3)
//
// LLM:
// - LLM_API_KEY: API key for the vision model provider (required)
// - LLM_API_URL: OpenAI-compatible endpoint (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: model name (default: meta-llama/llama-4-maverick)
// - LLM_MAX_TOKENS: maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.7)
// - LLM_TIMEOUT: request timeout in seconds (default: 60)
// - LLM_SITE_URL: site URL for HTTP referer header (optional)
// - LLM_APP_NAME: application name for X-Title header (optional)
//
// Pipeline:
// - CONTEXT_SIZE: translation context window entries (default: 8)
// - BAND_FRACTION: reading-order row tolerance as a fraction of median box height (default: 0.5)
// - CROP_PADDING: pixels of margin around a bubble crop (default: 10)
// - PDF_DPI: render resolution for PDF decomposition (default: 300)
//
// Render:
// - RENDER_MAX_FONT_SIZE / RENDER_MIN_FONT_SIZE / RENDER_FONT_STEP: font fitting bounds (default: 40 / 8 / 2)
// - RENDER_ELLIPSE_PADDING: bubble mask size relative to the box (default: 0.98)
// - JPEG_QUALITY: encoding quality when the output artifact is a JPEG (default: 90)
//
// Retention:
// - RETENTION_CRON: artifact cleanup schedule (default: @hourly; empty disables)
// - RETENTION_MAX_AGE_HOURS: age after which finished jobs and artifacts are removed (default: 72)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Paths     PathsConfig     `json:"paths"`
	Detector  DetectorConfig  `json:"detector"`
	LLM       LLMConfig       `json:"llm"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Render    RenderConfig    `json:"render"`
	Retention RetentionConfig `json:"retention"`
}

type ServerConfig struct {
	Addr           string `json:"addr"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	UIEnabled      bool   `json:"ui_enabled"`
	StaticDir      string `json:"static_dir"`
}

type PathsConfig struct {
	UploadDir string `json:"upload_dir"`
	OutputDir string `json:"output_dir"`
	WorkDir   string `json:"work_dir"`
	DBPath    string `json:"db_path"`
	FontPath  string `json:"font_path"`
}

// DetectorConfig holds the configuration for the bubble detection sidecar.
type DetectorConfig struct {
	BaseURL             string  `json:"base_url"`
	Timeout             int     `json:"timeout"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// LLMConfig holds the configuration for the vision LLM client.
// Supports any OpenAI-compatible provider.
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

type PipelineConfig struct {
	ContextSize  int     `json:"context_size"`
	BandFraction float64 `json:"band_fraction"`
	CropPadding  int     `json:"crop_padding"`
	PDFDPI       int     `json:"pdf_dpi"`
}

type RenderConfig struct {
	MaxFontSize    int     `json:"max_font_size"`
	MinFontSize    int     `json:"min_font_size"`
	FontStep       int     `json:"font_step"`
	EllipsePadding float64 `json:"ellipse_padding"`
	JPEGQuality    int     `json:"jpeg_quality"`
}

type RetentionConfig struct {
	CronExpr    string `json:"cron_expr"`
	MaxAgeHours int    `json:"max_age_hours"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Addr:           getEnvString("HTTP_ADDR", ":8080"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 16)) << 20,
			UIEnabled:      getEnvBool("WEB_UI_ENABLED", true),
			StaticDir:      getEnvString("WEB_STATIC_DIR", "web"),
		},
		Paths: PathsConfig{
			UploadDir: getEnvString("UPLOAD_DIR", "uploads"),
			OutputDir: getEnvString("OUTPUT_DIR", "outputs"),
			WorkDir:   getEnvString("WORK_DIR", "work"),
			DBPath:    getEnvString("DB_PATH", "data/jobs.db"),
			FontPath:  getEnvString("FONT_PATH", ""),
		},
		Detector: DetectorConfig{
			BaseURL:             getEnvString("DETECTOR_URL", "http://localhost:8000"),
			Timeout:             getEnvInt("DETECTOR_TIMEOUT", 60),
			ConfidenceThreshold: getEnvFloat("DETECTOR_CONF_THRESHOLD", 0.3),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "meta-llama/llama-4-maverick"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Pipeline: PipelineConfig{
			ContextSize:  getEnvInt("CONTEXT_SIZE", 8),
			BandFraction: getEnvFloat("BAND_FRACTION", 0.5),
			CropPadding:  getEnvInt("CROP_PADDING", 10),
			PDFDPI:       getEnvInt("PDF_DPI", 300),
		},
		Render: RenderConfig{
			MaxFontSize:    getEnvInt("RENDER_MAX_FONT_SIZE", 40),
			MinFontSize:    getEnvInt("RENDER_MIN_FONT_SIZE", 8),
			FontStep:       getEnvInt("RENDER_FONT_STEP", 2),
			EllipsePadding: getEnvFloat("RENDER_ELLIPSE_PADDING", 0.98),
			JPEGQuality:    getEnvInt("JPEG_QUALITY", 90),
		},
		Retention: RetentionConfig{
			CronExpr:    getEnvString("RETENTION_CRON", "@hourly"),
			MaxAgeHours: getEnvInt("RETENTION_MAX_AGE_HOURS", 72),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.Pipeline.ContextSize < 0 {
		return fmt.Errorf("CONTEXT_SIZE must not be negative")
	}
	if c.Render.MinFontSize <= 0 || c.Render.MaxFontSize < c.Render.MinFontSize {
		return fmt.Errorf("font size bounds are invalid: min=%d max=%d",
			c.Render.MinFontSize, c.Render.MaxFontSize)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
