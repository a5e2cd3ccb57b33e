// Package stageerr defines the failure taxonomy of the binding stage. Every
// failure is fatal; the kinds exist so callers and tests can tell them apart.
package stageerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a required environment variable or config
	// value is missing or invalid.
	ErrConfiguration = errors.New("configuration error")

	// ErrDiscovery indicates the header directory could not be listed, an
	// entry could not be inspected, or no headers were found.
	ErrDiscovery = errors.New("discovery error")

	// ErrMissingDependency indicates a dependency include variable is unset.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrMaterialization indicates the artifact tree could not be created.
	ErrMaterialization = errors.New("materialization error")

	// ErrGeneration indicates the translator failed.
	ErrGeneration = errors.New("generation error")

	// ErrWrite indicates the bindings file could not be written.
	ErrWrite = errors.New("write error")
)

// Error wraps an error with its kind and the path or variable implicated.
type Error struct {
	Kind    error  // One of the Err* sentinels
	Subject string // Path or variable name, if applicable
	Err     error  // Underlying error
}

// New returns an *Error of the given kind.
func New(kind error, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Newf is New with a formatted underlying error.
func Newf(kind error, subject string, format string, args ...interface{}) *Error {
	return New(kind, subject, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	switch {
	case e.Subject != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Subject, e.Err)
	case e.Subject != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Subject)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e, so errors.Is(err, ErrDiscovery)
// works without the sentinel being in the Unwrap chain.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}
