// Package errs defines the error categories shared across the command and
// consumer sides. Specific domain errors are marked with a category via
// Mark, so errors.Is matches both the specific sentinel and its category.
package errs

import (
	cr "github.com/cockroachdb/errors"
)

var (
	// ErrValidation covers bad or missing command fields, rejected before
	// any event is produced.
	ErrValidation = cr.New("validation error")

	// ErrNotFound covers commands against an aggregate id with no snapshot
	// and no events.
	ErrNotFound = cr.New("aggregate not found")

	// ErrAlreadyExists covers creation commands against an existing aggregate.
	ErrAlreadyExists = cr.New("aggregate already exists")

	// ErrConflict covers appends rejected by the version guard. The caller
	// must reload and retry.
	ErrConflict = cr.New("concurrency conflict: data changed, please retry")

	// ErrStoreUnavailable covers event/snapshot store infrastructure failures.
	ErrStoreUnavailable = cr.New("event store unavailable")

	// ErrBrokerUnavailable covers message broker infrastructure failures.
	ErrBrokerUnavailable = cr.New("message broker unavailable")

	// ErrProjection covers consumer-side projection failures. They cause a
	// nack and never affect the writer.
	ErrProjection = cr.New("projection error")
)

func New(msg string) error {
	return cr.New(msg)
}

// Wrap annotates err with msg, preserving its identity for errors.Is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

// Mark makes err match markErr under errors.Is without changing its message.
func Mark(err error, markErr error) error {
	if err == nil {
		return nil
	}
	return cr.Mark(err, markErr)
}
