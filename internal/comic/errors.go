package comic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorType int

const (
	ErrDetection ErrorType = iota
	ErrExtraction
	ErrTranslation
	ErrRender
	ErrDecomposition
	ErrUnknown
)

// TranslationError is the typed error carried through the pipeline. The
// Context map holds positional details (page, unit, stage) so a terminal
// job error can report exactly where processing stopped.
type TranslationError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *TranslationError {
	return &TranslationError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *TranslationError {
	return &TranslationError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *TranslationError) Error() string {
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

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a positional detail and returns the error for chaining.
func (e *TranslationError) WithContext(key string, value any) *TranslationError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrDetection:
		return "DetectionFailed"
	case ErrExtraction:
		return "ExtractionFailed"
	case ErrTranslation:
		return "TranslationFailed"
	case ErrRender:
		return "RenderFailed"
	case ErrDecomposition:
		return "DecompositionFailed"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var terr *TranslationError
	if errors.As(err, &terr) {
		return terr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *TranslationError {
	return NewErrorWithCause(errorType, message, err)
}

// SafeExecute runs fn and converts a panic into an ErrUnknown error so a
// single job goroutine cannot take the process down.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
