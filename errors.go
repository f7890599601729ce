package ccdavalidator

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// ErrNoDocument is returned when a request carries no document stream.
var ErrNoDocument = errors.New("no document stream provided")

// ErrorKind classifies a pipeline failure.
type ErrorKind int

// Error kinds. The zero value is KindUnclassified.
const (
	KindUnclassified ErrorKind = iota
	KindIO
	KindParse
	KindTypeMismatch
)

// kindPrecedence is the order in which kinds are matched against a failure.
var kindPrecedence = []ErrorKind{KindIO, KindParse, KindTypeMismatch}

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindTypeMismatch:
		return "type-mismatch"
	default:
		return "unclassified"
	}
}

// Service error message prefixes, one per kind.
const (
	errorGeneralPrefix      = "The service has encountered "
	errorParsingPrefix      = errorGeneralPrefix + "an error parsing the document. "
	errorFollowingPostfix   = "the following error: "
	ErrorPrefixIO           = errorGeneralPrefix + "the following input/output error: "
	ErrorPrefixParse        = errorParsingPrefix + "Please verify the document does not contain in-line XSL styling and/or address " + errorFollowingPostfix
	ErrorPrefixTypeMismatch = errorParsingPrefix + "Please verify the document is valid against schema and contains a v3 namespace definition: "
	ErrorPrefixUnclassified = errorGeneralPrefix + errorFollowingPostfix
)

// Prefix returns the user-facing message prefix for the kind.
func (k ErrorKind) Prefix() string {
	switch k {
	case KindIO:
		return ErrorPrefixIO
	case KindParse:
		return ErrorPrefixParse
	case KindTypeMismatch:
		return ErrorPrefixTypeMismatch
	default:
		return ErrorPrefixUnclassified
	}
}

// StageError is a classified failure. Engines return it to tell the pipeline
// what kind of failure occurred; the document reader returns it for I/O
// failures.
type StageError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

// NewStageError wraps err with a kind and the stage it came from. A stack
// trace is recorded if err does not already carry one.
func NewStageError(kind ErrorKind, stage Stage, err error) *StageError {
	if err == nil {
		err = errors.New(kind.String() + " failure")
	}
	if _, ok := err.(stackTracer); !ok {
		err = pkgerrors.WithStack(err)
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// IOError classifies err as a failure acquiring or reading the document.
func IOError(err error) *StageError {
	return NewStageError(KindIO, "", err)
}

// ParseError classifies err as a malformed-markup failure raised by stage.
func ParseError(stage Stage, err error) *StageError {
	return NewStageError(KindParse, stage, err)
}

// TypeMismatchError classifies err as a schema or namespace mismatch raised by stage.
func TypeMismatchError(stage Stage, err error) *StageError {
	return NewStageError(KindTypeMismatch, stage, err)
}

// Error returns the message of the underlying failure.
func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " failure"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Format prints the kind, stage and full trace with %+v.
func (e *StageError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Err != nil {
			if e.Stage != "" {
				_, _ = fmt.Fprintf(s, "%s failure in %s stage: %+v", e.Kind, e.Stage, e.Err)
			} else {
				_, _ = fmt.Fprintf(s, "%s failure: %+v", e.Kind, e.Err)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Classify returns the kind of err. When the error chain carries several
// classified failures the highest-precedence kind wins:
// I/O, then parse, then type mismatch.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnclassified
	}
	found := make(map[ErrorKind]bool, 3)
	collectKinds(err, found)
	for _, kind := range kindPrecedence {
		if found[kind] {
			return kind
		}
	}
	return KindUnclassified
}

func collectKinds(err error, found map[ErrorKind]bool) {
	for err != nil {
		if se, ok := err.(*StageError); ok {
			found[se.Kind] = true
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				collectKinds(inner, found)
			}
			return
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return
		}
	}
}

// Trace returns the full diagnostic trace of err, including stack frames
// when the error carries them.
func Trace(err error) string {
	if err == nil {
		return ""
	}
	switch err.(type) {
	case *StageError, stackTracer, fmt.Formatter:
		return fmt.Sprintf("%+v", err)
	}
	var se *StageError
	if errors.As(err, &se) {
		return err.Error() + "\ncaused by: " + fmt.Sprintf("%+v", se)
	}
	return fmt.Sprintf("%+v", pkgerrors.WithStack(err))
}

// ServiceError is the normalized, user-facing form of a pipeline failure.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Trace   string
}

// NormalizeError classifies err and builds the user-facing message: the
// kind's prefix followed by the failure's message, or by the full trace when
// the failure has no message.
func NormalizeError(err error) ServiceError {
	kind := Classify(err)
	trace := Trace(err)
	se := ServiceError{
		Kind:  kind,
		Trace: kind.Prefix() + trace,
	}
	if err != nil && err.Error() != "" {
		se.Message = kind.Prefix() + err.Error()
	} else {
		se.Message = se.Trace
	}
	return se
}
