package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// wsReader flattens WebSocket messages into one byte stream. Message
// boundaries are not preserved.
type wsReader struct {
	conn *websocket.Conn
	cur  io.Reader
}

func dialWebSocket(ctx context.Context, target string, timeout time.Duration, log *logrus.Entry) (io.ReadCloser, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = timeout

	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (HTTP %d): %w", target, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}
	log.WithField("remote", conn.RemoteAddr().String()).Debug("websocket connected")
	return &wsReader{conn: conn}, nil
}

func (w *wsReader) Read(p []byte) (int, error) {
	for {
		if w.cur == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			w.cur = r
		}

		n, err := w.cur.Read(p)
		if errors.Is(err, io.EOF) {
			w.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

// Close closes the connection without a close handshake, which unblocks a
// pending NextReader.
func (w *wsReader) Close() error {
	return w.conn.Close()
}
