package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/srg/bsrc/internal/transport"
	"github.com/srg/bsrc/pkg/stream"
)

const supportedTargets = "-, <path>, file://<path>, tcp://host:port, ws://..., wss://..., exec:<command>"

// FormatUserError turns an error returned by a command into a message for the
// terminal, adding a hint where the raw error is not self-explanatory.
func FormatUserError(err error) string {
	var srcErr *stream.SourceError
	switch {
	case errors.Is(err, transport.ErrUnsupportedScheme):
		return fmt.Sprintf("%v (supported targets: %s)", err, supportedTargets)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("%v (no such file)", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%v (timed out)", err)
	case errors.As(err, &srcErr):
		return fmt.Sprintf("%v (bytes received before the failure were written)", err)
	}
	return err.Error()
}
