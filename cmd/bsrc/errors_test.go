package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/srg/bsrc/internal/transport"
	"github.com/srg/bsrc/pkg/stream"
	"github.com/stretchr/testify/assert"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unsupported target",
			err:  fmt.Errorf("%w: gopher", transport.ErrUnsupportedScheme),
			want: "transport: unsupported scheme: gopher (supported targets: " + supportedTargets + ")",
		},
		{
			name: "missing file",
			err:  fmt.Errorf("failed to open /x: %w", os.ErrNotExist),
			want: "failed to open /x: file does not exist (no such file)",
		},
		{
			name: "dial timeout",
			err:  fmt.Errorf("failed to dial h:1: %w", context.DeadlineExceeded),
			want: "failed to dial h:1: context deadline exceeded (timed out)",
		},
		{
			name: "source failure",
			err:  fmt.Errorf("tcp://h:1: %w", &stream.SourceError{Err: errors.New("reset")}),
			want: "tcp://h:1: stream: source failure: reset (bytes received before the failure were written)",
		},
		{
			name: "plain",
			err:  errors.New("invalid log level: loud"),
			want: "invalid log level: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}
