package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MimeLyc/txt2img-batch/internal/workflow"
	"github.com/MimeLyc/txt2img-batch/pkg/file"
	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second

	maxDiagnosticLen = 500
)

// Config holds the settings for a Client.
//
// BaseURL: service root, e.g. http://127.0.0.1:8188
// OutputDir: the service's own output directory, searched for artifacts
// PollInterval: fixed delay between status queries
// HTTPTimeout: per-request timeout
// ClientID: sent with submissions; a random one is generated when empty
type Config struct {
	BaseURL      string
	OutputDir    string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	ClientID     string
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be greater than 0")
	}
	return nil
}

// Client talks to the job queue of a ComfyUI-compatible service.
// A Client is used from one goroutine at a time.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.ClientID == "" {
		config.ClientID = uuid.NewString()
	}

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}, nil
}

// Submit queues req and returns the service's prompt id unchanged.
// Every failure is a *JobError of type ErrSubmission.
func (c *Client) Submit(ctx context.Context, req workflow.JobRequest) (JobHandle, error) {
	payload := submitRequest{
		Prompt:   req.Graph(),
		ClientID: c.config.ClientID,
	}

	body, status, err := c.do(ctx, http.MethodPost, "/prompt", payload)
	if err != nil {
		return "", WrapError(err, ErrSubmission, "failed to queue prompt").
			WithContext("prefix", req.Prefix())
	}

	if status < 200 || status >= 300 {
		return "", NewError(ErrSubmission, fmt.Sprintf("queue request failed with status %d", status)).
			WithContext("prefix", req.Prefix()).
			WithContext("body", truncate(string(body), maxDiagnosticLen))
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", WrapError(err, ErrSubmission, "failed to parse queue response").
			WithContext("prefix", req.Prefix())
	}
	if resp.PromptID == "" {
		return "", NewError(ErrSubmission, "queue response has no prompt_id").
			WithContext("prefix", req.Prefix())
	}

	return JobHandle(resp.PromptID), nil
}

// AwaitCompletion polls the history of handle every PollInterval until the
// job succeeds, fails, or timeout elapses. Query errors never end the loop.
func (c *Client) AwaitCompletion(ctx context.Context, handle JobHandle, timeout time.Duration) JobResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.config.PollInterval), 1)
	result := JobResult{Handle: handle}

	for {
		if err := limiter.Wait(ctx); err != nil {
			result.Outcome = OutcomeTimeout
			result.Diagnostic = err.Error()
			result.Elapsed = time.Since(start)
			log.Warn("Prompt %s timed out after %d polls", handle, result.Polls)
			return result
		}

		result.Polls++
		entry, ok, err := c.History(ctx, handle)
		if err != nil {
			log.Debug("History query for %s failed, will retry: %v", handle, err)
			continue
		}
		if !ok {
			continue
		}

		switch {
		case entry.Status.succeeded():
			result.Outcome = OutcomeSuccess
			result.Entry = &entry
			result.Elapsed = time.Since(start)
			return result
		case entry.Status.failed():
			result.Outcome = OutcomeFailure
			result.Diagnostic = diagnostic(entry.Status)
			result.Elapsed = time.Since(start)
			return result
		}
	}
}

// History fetches the history entry for handle. ok is false while the
// service has no entry for it yet.
func (c *Client) History(ctx context.Context, handle JobHandle) (entry HistoryEntry, ok bool, err error) {
	body, status, err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(string(handle)), nil)
	if err != nil {
		return HistoryEntry{}, false, err
	}
	if status < 200 || status >= 300 {
		return HistoryEntry{}, false, fmt.Errorf("history request failed with status %d", status)
	}

	var history History
	if err := json.Unmarshal(body, &history); err != nil {
		return HistoryEntry{}, false, fmt.Errorf("failed to parse history: %w", err)
	}
	entry, ok = history[string(handle)]
	return entry, ok, nil
}

// ArtifactName returns the first image filename among the outputs of a
// successful result. Node ids are visited in numeric order.
func ArtifactName(result JobResult) string {
	if result.Outcome != OutcomeSuccess || result.Entry == nil {
		return ""
	}

	ids := make([]string, 0, len(result.Entry.Outputs))
	for id := range result.Entry.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		images := result.Entry.Outputs[id].Images
		if len(images) > 0 {
			return images[0].Filename
		}
	}
	return ""
}

// LocateArtifact finds the artifact of a successful result in the service
// output directory or one of its immediate subdirectories.
func (c *Client) LocateArtifact(result JobResult) (string, bool) {
	name := ArtifactName(result)
	if name == "" {
		return "", false
	}
	return file.FindInRootOrChildren(c.config.OutputDir, name)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("request timed out: %w", err)
		}
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return responseBody, resp.StatusCode, nil
}

func diagnostic(s Status) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return s.StatusStr
	}
	return truncate(string(data), maxDiagnosticLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
