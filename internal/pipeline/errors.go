package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a run failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindMissingInput
	KindLoad
	KindTransform
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindMissingInput:
		return "missing_input"
	case KindLoad:
		return "load"
	case KindTransform:
		return "transform"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// Error is a failed phase. It wraps the cause, so errors.Is and errors.As
// see through it.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, phase string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// ConfigError marks err as a configuration failure detected before Run.
func ConfigError(err error) error { return wrap(KindConfig, "config", err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status: 0 for nil, 2 config,
// 3 missing input, 4 load, 5 transform, 6 database, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindMissingInput:
		return 3
	case KindLoad:
		return 4
	case KindTransform:
		return 5
	case KindDatabase:
		return 6
	default:
		return 1
	}
}
