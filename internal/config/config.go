package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/txt2img-batch/internal/workflow"
	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Generation Service:
// - COMFYUI_URL: service root (default: http://127.0.0.1:8188)
// - COMFYUI_OUTPUT_DIR: the service's output directory (default: ComfyUI/output)
// - POLL_INTERVAL: seconds between status queries (default: 3)
// - JOB_TIMEOUT: seconds to wait for one job (default: 300)
// - HTTP_TIMEOUT: seconds per HTTP request (default: 30)
//
// Model:
// - UNET_NAME, VAE_NAME: model files (defaults: flux1-schnell-Q4_K_S.gguf, ae.safetensors)
// - SAMPLER_STEPS: sampling steps (default: 4)
// - LATENT_WIDTH, LATENT_HEIGHT: generated size (default: 512x512)
//
// Output:
// - OUTPUT_DIR: first destination directory (default: public)
// - LOGO_DIR: second destination directory (default: app-logos)
// - OUTPUT_PREFIX: file name prefix (default: dream-interpret)
// - RESIZE_WIDTH, RESIZE_HEIGHT: final size (default: 600x600)
// - RESIZE_ENABLED: resize instead of copy when possible (default: true)
//
// Batch:
// - PROMPTS_FILE: JSON file replacing the built-in prompt set (optional)
// - CRON_EXPR: run on a schedule instead of once (optional)
//
// System:
// - LOG_LEVEL: debug, info, warn, error (default: info)
type Config struct {
	Service ServiceConfig `json:"service"`
	Model   ModelConfig   `json:"model"`
	Output  OutputConfig  `json:"output"`
	Batch   BatchConfig   `json:"batch"`
	System  SystemConfig  `json:"system"`
}

type ServiceConfig struct {
	URL          string `json:"url"`
	OutputDir    string `json:"output_dir"`
	PollInterval int    `json:"poll_interval"`
	JobTimeout   int    `json:"job_timeout"`
	HTTPTimeout  int    `json:"http_timeout"`
}

func (c ServiceConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c ServiceConfig) JobTimeoutDuration() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}

func (c ServiceConfig) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

type ModelConfig struct {
	UnetName     string `json:"unet_name"`
	VAEName      string `json:"vae_name"`
	Steps        int    `json:"steps"`
	LatentWidth  int    `json:"latent_width"`
	LatentHeight int    `json:"latent_height"`
}

// ModelSet overlays the configured values on workflow.DefaultModelSet.
func (c ModelConfig) ModelSet() workflow.ModelSet {
	m := workflow.DefaultModelSet()
	if c.UnetName != "" {
		m.UnetName = c.UnetName
	}
	if c.VAEName != "" {
		m.VAEName = c.VAEName
	}
	if c.Steps > 0 {
		m.Steps = c.Steps
	}
	if c.LatentWidth > 0 {
		m.Width = c.LatentWidth
	}
	if c.LatentHeight > 0 {
		m.Height = c.LatentHeight
	}
	return m
}

type OutputConfig struct {
	PublicDir     string `json:"public_dir"`
	LogoDir       string `json:"logo_dir"`
	Prefix        string `json:"prefix"`
	ResizeWidth   int    `json:"resize_width"`
	ResizeHeight  int    `json:"resize_height"`
	ResizeEnabled bool   `json:"resize_enabled"`
}

// Dirs returns the destination directories in write order.
func (c OutputConfig) Dirs() []string {
	return []string{c.PublicDir, c.LogoDir}
}

type BatchConfig struct {
	PromptsFile string `json:"prompts_file"`
	CronExpr    string `json:"cron_expr"`
}

type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Service: ServiceConfig{
			URL:          getEnvString("COMFYUI_URL", "http://127.0.0.1:8188"),
			OutputDir:    getEnvString("COMFYUI_OUTPUT_DIR", "ComfyUI/output"),
			PollInterval: getEnvInt("POLL_INTERVAL", 3),
			JobTimeout:   getEnvInt("JOB_TIMEOUT", 300),
			HTTPTimeout:  getEnvInt("HTTP_TIMEOUT", 30),
		},
		Model: ModelConfig{
			UnetName:     getEnvString("UNET_NAME", ""),
			VAEName:      getEnvString("VAE_NAME", ""),
			Steps:        getEnvInt("SAMPLER_STEPS", 0),
			LatentWidth:  getEnvInt("LATENT_WIDTH", 0),
			LatentHeight: getEnvInt("LATENT_HEIGHT", 0),
		},
		Output: OutputConfig{
			PublicDir:     getEnvString("OUTPUT_DIR", "public"),
			LogoDir:       getEnvString("LOGO_DIR", "app-logos"),
			Prefix:        getEnvString("OUTPUT_PREFIX", "dream-interpret"),
			ResizeWidth:   getEnvInt("RESIZE_WIDTH", 600),
			ResizeHeight:  getEnvInt("RESIZE_HEIGHT", 600),
			ResizeEnabled: getEnvBool("RESIZE_ENABLED", true),
		},
		Batch: BatchConfig{
			PromptsFile: getEnvString("PROMPTS_FILE", ""),
			CronExpr:    getEnvString("CRON_EXPR", ""),
		},
		System: SystemConfig{
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	u, err := url.Parse(c.Service.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("COMFYUI_URL must be an absolute URL, got %q", c.Service.URL)
	}
	if strings.TrimSpace(c.Service.OutputDir) == "" {
		return fmt.Errorf("COMFYUI_OUTPUT_DIR is required")
	}
	if c.Service.PollInterval < 1 {
		return fmt.Errorf("POLL_INTERVAL must be greater than 0")
	}
	if c.Service.JobTimeout < 1 {
		return fmt.Errorf("JOB_TIMEOUT must be greater than 0")
	}
	if c.Service.HTTPTimeout < 1 {
		return fmt.Errorf("HTTP_TIMEOUT must be greater than 0")
	}
	if strings.TrimSpace(c.Output.PublicDir) == "" || strings.TrimSpace(c.Output.LogoDir) == "" {
		return fmt.Errorf("OUTPUT_DIR and LOGO_DIR are required")
	}
	if strings.TrimSpace(c.Output.Prefix) == "" {
		return fmt.Errorf("OUTPUT_PREFIX is required")
	}
	if c.Output.ResizeEnabled && (c.Output.ResizeWidth < 1 || c.Output.ResizeHeight < 1) {
		return fmt.Errorf("RESIZE_WIDTH and RESIZE_HEIGHT must be greater than 0")
	}
	if c.Batch.CronExpr != "" {
		if _, err := cron.ParseStandard(c.Batch.CronExpr); err != nil {
			return fmt.Errorf("invalid CRON_EXPR: %w", err)
		}
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

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
