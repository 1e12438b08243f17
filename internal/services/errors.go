package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrTransient      = errors.New("transient service error")
	ErrTimeout        = errors.New("timeout")
	ErrRender         = errors.New("render error")
	ErrDataCorruption = errors.New("data corruption")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Kind is the persisted classification of a stage failure.
type Kind string

const (
	KindNone           Kind = ""
	KindValidation     Kind = "validation"
	KindTransient      Kind = "transient"
	KindRender         Kind = "render"
	KindDataCorruption Kind = "data_corruption"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindUnknown        Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto its Kind. Context deadline errors count as
// transient; context cancellation is not classified.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDataCorruption):
		return KindDataCorruption
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRender):
		return KindRender
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUnknown
	}
}

// MarkerFor returns the sentinel error for a persisted or transmitted Kind.
func MarkerFor(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindTransient:
		return ErrTransient
	case KindRender:
		return ErrRender
	case KindDataCorruption:
		return ErrDataCorruption
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	default:
		return nil
	}
}

// Retryable reports whether the workflow should schedule another attempt.
func Retryable(err error) bool {
	return Classify(err) == KindTransient
}

// CallWithTimeout runs fn with a derived deadline. An expired deadline is
// reported as ErrTimeout so it is retried like any other transient failure;
// cancellation of the parent context is returned untouched.
func CallWithTimeout(ctx context.Context, timeout time.Duration, stage, operation string, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return Wrap(ErrTimeout, stage, operation, fmt.Sprintf("no response within %s", timeout), err)
	}
	return err
}

// Message returns the human readable part of an error without marker prefixes.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, marker := range []error{ErrValidation, ErrTransient, ErrTimeout, ErrRender, ErrDataCorruption, ErrNotFound, ErrConflict} {
		msg = strings.TrimPrefix(msg, marker.Error()+": ")
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
