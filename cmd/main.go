package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/txt2img-batch/internal/batch"
	"github.com/MimeLyc/txt2img-batch/internal/comfy"
	"github.com/MimeLyc/txt2img-batch/internal/config"
	"github.com/MimeLyc/txt2img-batch/internal/workflow"
	"github.com/MimeLyc/txt2img-batch/pkg/icron"
	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	prompts, err := loadPrompts(*cfg)
	if err != nil {
		log.Fatal("Failed to load prompts: %v", err)
	}

	runner, err := newRunner(*cfg)
	if err != nil {
		log.Fatal("Failed to create job client: %v", err)
	}

	if cfg.Batch.CronExpr == "" {
		runner.Run(context.Background(), prompts)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if _, err := runner.Schedule(context.Background(), c, cfg.Batch.CronExpr, prompts); err != nil {
		log.Fatal("Failed to schedule batch: %v", err)
	}
	if info, err := icron.GetTriggerInfo(cfg.Batch.CronExpr, time.Now()); err == nil {
		log.Info("Scheduled %d prompts on %q, next run at %s (in %s)",
			len(prompts), info.Expression, info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
	}
	c.Start()

	<-ctx.Done()
	log.Info("Shutting down, waiting for the running batch")
	<-c.Stop().Done()
}

func loadPrompts(cfg config.Config) ([]workflow.Prompt, error) {
	if cfg.Batch.PromptsFile == "" {
		return batch.DefaultPrompts, nil
	}
	return config.LoadPromptsFile(cfg.Batch.PromptsFile)
}

func newRunner(cfg config.Config) (*batch.Runner, error) {
	client, err := comfy.NewClient(comfy.Config{
		BaseURL:      cfg.Service.URL,
		OutputDir:    cfg.Service.OutputDir,
		PollInterval: cfg.Service.PollIntervalDuration(),
		HTTPTimeout:  cfg.Service.HTTPTimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}

	return batch.NewRunner(client, batch.Settings{
		Models:     cfg.Model.ModelSet(),
		JobTimeout: cfg.Service.JobTimeoutDuration(),
		Dirs:       cfg.Output.Dirs(),
		Prefix:     cfg.Output.Prefix,
		Width:      cfg.Output.ResizeWidth,
		Height:     cfg.Output.ResizeHeight,
		Resize:     cfg.Output.ResizeEnabled,
	}), nil
}
