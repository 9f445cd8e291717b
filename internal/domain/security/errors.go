package security

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them to response classes.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this domain.
	KindUnknown Kind = iota
	// KindArtifactWrite means the input image could not be written before spawning the worker.
	KindArtifactWrite
	// KindProcess means the worker could not be spawned or violated its output contract.
	KindProcess
	// KindConfigFile means the config store failed to load or save.
	KindConfigFile
	// KindNotFound means the config or the annotated image does not exist.
	KindNotFound
	// KindImageRead means the annotated image exists but could not be read.
	KindImageRead
	// KindInvalidTransition means a guard rejected the requested transition.
	KindInvalidTransition
	// KindInvalidConfig means a caller supplied a malformed config.
	KindInvalidConfig
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindArtifactWrite:
		return "artifact_write"
	case KindProcess:
		return "process"
	case KindConfigFile:
		return "config_file"
	case KindNotFound:
		return "not_found"
	case KindImageRead:
		return "image_read"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindInvalidConfig:
		return "invalid_config"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a detail string reproducing the triggering condition.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Detail is the human-readable message returned to callers verbatim.
	Detail string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the detail string.
func (e *Error) Error() string {
	return e.Detail
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error with a formatted detail.
func NewError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Err:    cause,
	}
}

// KindOf returns the kind of the first *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
