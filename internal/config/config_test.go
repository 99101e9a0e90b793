package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COMFYUI_URL", "COMFYUI_OUTPUT_DIR", "POLL_INTERVAL", "JOB_TIMEOUT", "HTTP_TIMEOUT",
		"UNET_NAME", "VAE_NAME", "SAMPLER_STEPS", "LATENT_WIDTH", "LATENT_HEIGHT",
		"OUTPUT_DIR", "LOGO_DIR", "OUTPUT_PREFIX", "RESIZE_WIDTH", "RESIZE_HEIGHT", "RESIZE_ENABLED",
		"PROMPTS_FILE", "CRON_EXPR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8188", cfg.Service.URL)
	assert.Equal(t, 3*time.Second, cfg.Service.PollIntervalDuration())
	assert.Equal(t, 300*time.Second, cfg.Service.JobTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Service.HTTPTimeoutDuration())
	assert.Equal(t, []string{"public", "app-logos"}, cfg.Output.Dirs())
	assert.Equal(t, "dream-interpret", cfg.Output.Prefix)
	assert.Equal(t, 600, cfg.Output.ResizeWidth)
	assert.Equal(t, 600, cfg.Output.ResizeHeight)
	assert.True(t, cfg.Output.ResizeEnabled)
	assert.Empty(t, cfg.Batch.CronExpr)

	m := cfg.Model.ModelSet()
	assert.Equal(t, "flux1-schnell-Q4_K_S.gguf", m.UnetName)
	assert.Equal(t, 512, m.Width)
	assert.Equal(t, 4, m.Steps)
}

func TestNewFromEnv_FromEnv(t *testing.T) {
	t.Setenv("COMFYUI_URL", "http://gpu-box:8190")
	t.Setenv("COMFYUI_OUTPUT_DIR", "/srv/comfy/output")
	t.Setenv("POLL_INTERVAL", "1")
	t.Setenv("JOB_TIMEOUT", "60")
	t.Setenv("OUTPUT_DIR", "/tmp/public")
	t.Setenv("LOGO_DIR", "/tmp/logos")
	t.Setenv("OUTPUT_PREFIX", "moon")
	t.Setenv("RESIZE_ENABLED", "false")
	t.Setenv("CRON_EXPR", "0 3 * * *")
	t.Setenv("SAMPLER_STEPS", "8")
	t.Setenv("LATENT_WIDTH", "1024")
	t.Setenv("UNET_NAME", "flux1-dev-Q4_K_S.gguf")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:8190", cfg.Service.URL)
	assert.Equal(t, "/srv/comfy/output", cfg.Service.OutputDir)
	assert.Equal(t, time.Second, cfg.Service.PollIntervalDuration())
	assert.Equal(t, time.Minute, cfg.Service.JobTimeoutDuration())
	assert.Equal(t, []string{"/tmp/public", "/tmp/logos"}, cfg.Output.Dirs())
	assert.Equal(t, "moon", cfg.Output.Prefix)
	assert.False(t, cfg.Output.ResizeEnabled)
	assert.Equal(t, "0 3 * * *", cfg.Batch.CronExpr)

	m := cfg.Model.ModelSet()
	assert.Equal(t, 8, m.Steps)
	assert.Equal(t, 1024, m.Width)
	assert.Equal(t, 512, m.Height)
	assert.Equal(t, "flux1-dev-Q4_K_S.gguf", m.UnetName)
}

func TestNewFromEnv_IgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("RESIZE_ENABLED", "maybe")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Service.PollInterval)
	assert.True(t, cfg.Output.ResizeEnabled)
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "relative url", env: map[string]string{"COMFYUI_URL": "127.0.0.1:8188"}, wantErr: "COMFYUI_URL"},
		{name: "zero poll interval", env: map[string]string{"POLL_INTERVAL": "0"}, wantErr: "POLL_INTERVAL"},
		{name: "negative timeout", env: map[string]string{"JOB_TIMEOUT": "-5"}, wantErr: "JOB_TIMEOUT"},
		{name: "bad cron", env: map[string]string{"CRON_EXPR": "every day"}, wantErr: "CRON_EXPR"},
		{name: "zero resize", env: map[string]string{"RESIZE_WIDTH": "0"}, wantErr: "RESIZE_WIDTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewFromEnv_ZeroResizeAllowedWhenDisabled(t *testing.T) {
	t.Setenv("RESIZE_WIDTH", "0")
	t.Setenv("RESIZE_ENABLED", "false")

	_, err := NewFromEnv()
	assert.NoError(t, err)
}

func TestNewFromEnv_OptionsApplyBeforeValidation(t *testing.T) {
	_, err := NewFromEnv(func(c *Config) { c.Output.Prefix = " " })
	assert.Error(t, err)

	cfg, err := NewFromEnv(func(c *Config) { c.Output.LogoDir = "/opt/logos" })
	require.NoError(t, err)
	assert.Equal(t, "/opt/logos", cfg.Output.LogoDir)
}
