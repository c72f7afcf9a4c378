// Package transport opens the blocking byte sources that feed a
// stream.BufferedSource. Every source is returned as an io.ReadCloser whose
// Close unblocks a pending Read where the underlying transport allows it.
//
// Supported targets:
//
//	-                      standard input
//	path, file://path      local file
//	tcp://host:port        TCP connection
//	ws://..., wss://...    WebSocket, messages concatenated into one stream
//	exec:cmd arg...        command output read through a pseudo-terminal
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedScheme is returned for targets no transport understands.
var ErrUnsupportedScheme = errors.New("transport: unsupported scheme")

const defaultDialTimeout = 10 * time.Second

// Options configures Open. A nil *Options uses defaults.
type Options struct {
	DialTimeout time.Duration  // tcp and websocket dials (0 = 10s)
	Logger      *logrus.Logger // optional logger (nil = no-op logger)
	Stdin       io.Reader      // source for "-" (nil = os.Stdin)
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Open dials or opens target and returns it as a blocking reader.
func Open(ctx context.Context, target string, opts *Options) (io.ReadCloser, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}

	log := logger.WithField("target", target)

	switch {
	case target == "":
		return nil, fmt.Errorf("%w: empty target", ErrUnsupportedScheme)
	case target == "-":
		log.Debug("reading standard input")
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(stdin), nil
	case strings.HasPrefix(target, "exec:"):
		return openExec(ctx, strings.TrimPrefix(target, "exec:"), log)
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// bare path (a one-letter scheme is a Windows drive letter)
		return openFile(target, log)
	}

	switch u.Scheme {
	case "file":
		return openFile(u.Path, log)
	case "tcp":
		return dialTCP(ctx, u.Host, dialTimeout, log)
	case "ws", "wss":
		return dialWebSocket(ctx, target, dialTimeout, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func openFile(path string, log *logrus.Entry) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	log.Debug("opened file")
	return f, nil
}

func dialTCP(ctx context.Context, addr string, timeout time.Duration, log *logrus.Entry) (io.ReadCloser, error) {
	if addr == "" {
		return nil, fmt.Errorf("tcp target needs host:port")
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	log.WithField("remote", conn.RemoteAddr().String()).Debug("tcp connected")
	return conn, nil
}
