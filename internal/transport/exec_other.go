//go:build !unix

package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

func openExec(_ context.Context, _ string, _ *logrus.Entry) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: exec requires a unix pseudo-terminal", ErrUnsupportedScheme)
}
