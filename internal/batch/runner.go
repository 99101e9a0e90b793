package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/MimeLyc/txt2img-batch/internal/comfy"
	"github.com/MimeLyc/txt2img-batch/internal/imaging"
	"github.com/MimeLyc/txt2img-batch/internal/workflow"
	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

const instrumentationName = "github.com/MimeLyc/txt2img-batch/internal/batch"

// JobClient is the part of comfy.Client the runner needs.
type JobClient interface {
	Submit(ctx context.Context, req workflow.JobRequest) (comfy.JobHandle, error)
	AwaitCompletion(ctx context.Context, handle comfy.JobHandle, timeout time.Duration) comfy.JobResult
	LocateArtifact(result comfy.JobResult) (string, bool)
}

// Settings controls how each job is built and where its output goes.
type Settings struct {
	Models     workflow.ModelSet
	JobTimeout time.Duration
	// Dirs are the destination directories; every job writes one file to each.
	Dirs   []string
	Prefix string
	Width  int
	Height int
	Resize bool
}

// Summary reports one batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  map[comfy.ErrorType]int
	Files     []string
	Dirs      []string
	Elapsed   time.Duration
}

type Runner struct {
	client     JobClient
	settings   Settings
	errHandler comfy.ErrorHandler
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	executions metric.Int64Counter
	group      singleflight.Group
}

type Option func(*Runner)

func WithErrorHandler(h comfy.ErrorHandler) Option {
	return func(r *Runner) {
		r.errHandler = h
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		r.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider records job metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Runner) {
		r.setMeter(mp.Meter(instrumentationName))
	}
}

func NewRunner(client JobClient, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		client:     client,
		settings:   settings,
		errHandler: comfy.NewDefaultErrorHandler(),
		tracer:     otel.Tracer(instrumentationName),
	}
	r.setMeter(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// setMeter creates the job instruments. On error the API hands back noop
// instruments, so the errors are ignored.
func (r *Runner) setMeter(meter metric.Meter) {
	r.duration, _ = meter.Float64Histogram(
		"batch.job.duration",
		metric.WithDescription("Duration of one generation job in seconds"),
		metric.WithUnit("s"),
	)
	r.executions, _ = meter.Int64Counter(
		"batch.job.executions",
		metric.WithDescription("Total number of generation jobs"),
		metric.WithUnit("{job}"),
	)
}

// OutputName is the file written for a job named name.
func OutputName(prefix, name string) string {
	return norm.NFC.String(fmt.Sprintf("%s-%s.png", prefix, name))
}

// Run processes prompts one after another. A failing job is logged and
// skipped; Run itself never fails. Overlapping calls share one run.
// Cancelling ctx does not stop a run; only its values are used.
func (r *Runner) Run(ctx context.Context, prompts []workflow.Prompt) Summary {
	ctx = context.WithoutCancel(ctx)
	v, _, _ := r.group.Do("run", func() (any, error) {
		return r.run(ctx, prompts), nil
	})
	return v.(Summary)
}

func (r *Runner) run(ctx context.Context, prompts []workflow.Prompt) Summary {
	start := time.Now()
	summary := Summary{
		Total:    len(prompts),
		Failures: make(map[comfy.ErrorType]int),
		Dirs:     r.settings.Dirs,
	}

	log.Info("Generating %d variants into %s", len(prompts), strings.Join(r.settings.Dirs, ", "))
	for _, dir := range r.settings.Dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Failed to create output dir %s: %v", dir, err)
		}
	}

	for _, p := range prompts {
		log.Info("[%s] seed=%d", p.Name, p.Seed)

		jobStart := time.Now()
		files, err := r.runJob(ctx, p)
		status := "ok"
		if err != nil {
			errType := comfy.ErrUnknown
			var jobErr *comfy.JobError
			if errors.As(err, &jobErr) {
				errType = jobErr.Type
			}
			status = errType.String()
			summary.Failures[errType]++
			summary.Failed++
			r.errHandler.Handle(err)
		}

		attrs := metric.WithAttributes(
			attribute.String("job_name", p.Name),
			attribute.String("status", status),
		)
		r.duration.Record(ctx, time.Since(jobStart).Seconds(), attrs)
		r.executions.Add(ctx, 1, attrs)

		if err != nil {
			continue
		}
		summary.Succeeded++
		summary.Files = append(summary.Files, files...)
	}

	summary.Elapsed = time.Since(start)
	log.Info("Done: %d/%d succeeded in %s. Check outputs in: %s",
		summary.Succeeded, summary.Total, summary.Elapsed.Round(time.Second), strings.Join(summary.Dirs, ", "))
	return summary
}

func (r *Runner) runJob(ctx context.Context, p workflow.Prompt) (files []string, err error) {
	ctx, span := r.tracer.Start(ctx, "batch.job", trace.WithAttributes(
		attribute.String("job.name", p.Name),
		attribute.Int64("job.seed", p.Seed),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := workflow.BuildTxt2Img(p, r.settings.Models)
	if err != nil {
		return nil, comfy.WrapError(err, comfy.ErrConfig, "failed to build workflow").
			WithContext("name", p.Name)
	}

	handle, err := r.client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("job.prompt_id", string(handle)))
	log.Info("  Queued: %s", handle)

	result := r.client.AwaitCompletion(ctx, handle, r.settings.JobTimeout)
	span.SetAttributes(
		attribute.String("job.outcome", result.Outcome.String()),
		attribute.Int("job.polls", result.Polls),
	)
	if err := result.Err(); err != nil {
		return nil, err
	}

	name := comfy.ArtifactName(result)
	if name == "" {
		return nil, comfy.NewError(comfy.ErrArtifactNotFound, "no output file reported").
			WithContext("prompt_id", handle)
	}
	src, ok := r.client.LocateArtifact(result)
	if !ok {
		return nil, comfy.NewError(comfy.ErrArtifactNotFound, "output file not found").
			WithContext("prompt_id", handle).
			WithContext("filename", name)
	}

	dests := make([]string, 0, len(r.settings.Dirs))
	for _, dir := range r.settings.Dirs {
		dests = append(dests, filepath.Join(dir, OutputName(r.settings.Prefix, p.Name)))
	}

	method, err := imaging.Materialize(src, dests, r.settings.Width, r.settings.Height, imaging.WithResize(r.settings.Resize))
	if err != nil {
		return nil, comfy.WrapError(err, comfy.ErrMaterialize, "failed to write output").
			WithContext("source", src)
	}
	for _, dst := range dests {
		size := "?"
		if info, err := os.Stat(dst); err == nil {
			size = fmt.Sprintf("%.0fKB", float64(info.Size())/1024)
		}
		log.Info("  Saved (%s): %s (%s)", method, dst, size)
	}
	return dests, nil
}

// Schedule registers a run of prompts on c for every tick of expr.
func (r *Runner) Schedule(ctx context.Context, c *cron.Cron, expr string, prompts []workflow.Prompt) (cron.EntryID, error) {
	return c.AddFunc(expr, func() {
		r.Run(ctx, prompts)
	})
}
