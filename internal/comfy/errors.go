package comfy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

type ErrorType int

const (
	ErrSubmission ErrorType = iota
	ErrCompletion
	ErrTimeout
	ErrArtifactNotFound
	ErrMaterialize
	ErrConfig
	ErrUnknown
)

// JobError is the error returned for one job of a batch.
type JobError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *JobError {
	return &JobError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *JobError {
	return &JobError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *JobError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

func (e *JobError) WithContext(key string, value any) *JobError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrSubmission:
		return "Submission"
	case ErrCompletion:
		return "Completion"
	case ErrTimeout:
		return "Timeout"
	case ErrArtifactNotFound:
		return "ArtifactNotFound"
	case ErrMaterialize:
		return "Materialize"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *JobError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err. It reports whether err was a *JobError.
func (h *DefaultErrorHandler) Handle(err error) bool {
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		log.Error("Unknown error: %v", err)
		return false
	}

	log.Error("%v\n advice: %s", err, h.GetAdvice(jobErr))
	return true
}

func (h *DefaultErrorHandler) GetAdvice(err *JobError) string {
	switch err.Type {
	case ErrSubmission:
		return "Check that the generation service is running at COMFYUI_URL and that the required node packs are installed"
	case ErrCompletion:
		return "The service rejected the job; check its console for the failing node and verify the model files exist"
	case ErrTimeout:
		return "The job did not finish in time; raise JOB_TIMEOUT or check whether the service queue is stalled"
	case ErrArtifactNotFound:
		return "Check that COMFYUI_OUTPUT_DIR points at the service's output directory"
	case ErrMaterialize:
		return "Ensure the output directories exist and are writable"
	case ErrConfig:
		return "Check the environment variables or .env file"
	default:
		return "Review the error details above"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *JobError {
	return NewErrorWithCause(errorType, message, err)
}
