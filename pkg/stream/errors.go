package stream

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrEndOfSource is the terminal error installed when the source returns io.EOF.
	ErrEndOfSource = errors.New("stream: end of source")

	// ErrSourceFailure matches every *SourceError under errors.Is.
	ErrSourceFailure = errors.New("stream: source failure")

	// ErrClosed is the terminal error installed by Close.
	ErrClosed = errors.New("stream: closed")

	// ErrInvalidArgument reports a malformed request. It never changes buffer state.
	ErrInvalidArgument = errors.New("stream: invalid argument")

	// ErrNoData is returned by ReadByte and Read when nothing is buffered yet
	// and the producer is still running. It matches syscall.EAGAIN.
	ErrNoData = fmt.Errorf("stream: no data available: %w", syscall.EAGAIN)
)

// SourceError carries the I/O error that stopped the producer.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSourceFailure.Error(), e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports ErrSourceFailure as a match so callers don't need errors.As
// just to classify the failure.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceFailure
}

// IsTerminal reports whether err is one of the terminal conditions a
// BufferedSource can surface.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrEndOfSource) ||
		errors.Is(err, ErrSourceFailure) ||
		errors.Is(err, ErrClosed)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
