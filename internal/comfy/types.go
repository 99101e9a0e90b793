package comfy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MimeLyc/txt2img-batch/internal/workflow"
)

// JobHandle is the prompt id the service assigned to an accepted job.
type JobHandle string

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// JobResult is the terminal state of a job.
type JobResult struct {
	Handle  JobHandle
	Outcome Outcome
	// Entry is set on success.
	Entry *HistoryEntry
	// Diagnostic is set on failure and timeout.
	Diagnostic string
	Polls      int
	Elapsed    time.Duration
}

// Err maps a non-success result to a *JobError.
func (r JobResult) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeFailure:
		return NewError(ErrCompletion, "job reported an error").
			WithContext("prompt_id", r.Handle).
			WithContext("status", r.Diagnostic)
	case OutcomeTimeout:
		return NewError(ErrTimeout, fmt.Sprintf("no terminal status after %s", r.Elapsed.Round(time.Second))).
			WithContext("prompt_id", r.Handle).
			WithContext("polls", r.Polls)
	default:
		return NewError(ErrUnknown, "unknown outcome")
	}
}

type submitRequest struct {
	Prompt   workflow.Graph `json:"prompt"`
	ClientID string         `json:"client_id,omitempty"`
}

type submitResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`
}

// History is the /history/{id} document, keyed by prompt id.
type History map[string]HistoryEntry

type HistoryEntry struct {
	Status  Status                `json:"status"`
	Outputs map[string]NodeOutput `json:"outputs"`
}

type Status struct {
	StatusStr string            `json:"status_str"`
	Completed bool              `json:"completed"`
	Messages  []json.RawMessage `json:"messages,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func (s Status) succeeded() bool {
	return s.Completed || s.StatusStr == statusSuccess
}

func (s Status) failed() bool {
	return s.StatusStr == statusError
}

type NodeOutput struct {
	Images []FileRef `json:"images,omitempty"`
}

// FileRef is a produced file as reported by the service.
type FileRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}
