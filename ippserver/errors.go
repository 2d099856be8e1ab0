// Package ippserver builds IPP printer services on top of the ipp wire
// codec: an HTTP adapter, a polymorphic operation-dispatch surface, a
// default "capture documents" service implementation, printer
// configuration, and an in-memory job registry.
package ippserver

import (
	"errors"
	"fmt"

	"github.com/netprint/ippd/ipp"
)

// StatusError pairs an IPP Status with the error that caused it, so a
// handler can return an ordinary error while still letting the HTTP
// adapter recover the exact status to put on the wire.
type StatusError struct {
	Status ipp.Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Status, e.Err)
	}
	return e.Status.String()
}

func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError wraps err with the given IPP status.
func NewStatusError(status ipp.Status, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

// StatusOf recovers the IPP status that should be reported for err: the
// status of the first StatusError in err's chain, or
// server-error-internal-error for anything else.
func StatusOf(err error) ipp.Status {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return ipp.StatusErrorInternal
}

// ErrJobNotFound is returned by Registry lookups for an id that was never
// issued or has since been evicted.
var ErrJobNotFound = NewStatusError(ipp.StatusErrorNotFound, errors.New("job not found"))

// ErrOperationNotSupported is returned by dispatch for an operation code
// the Service does not implement.
var ErrOperationNotSupported = NewStatusError(
	ipp.StatusErrorOperationNotSupported, errors.New("operation not supported"))

// ErrDocumentFormatNotSupported is returned when a request names a
// document-format the PrinterInfo does not list as supported.
var ErrDocumentFormatNotSupported = NewStatusError(
	ipp.StatusErrorDocumentFormatNotSupported, errors.New("document format not supported"))
