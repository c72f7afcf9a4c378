package testutils

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type chunk struct {
	data []byte
	err  error
}

// ScriptedReader is a blocking io.ReadCloser driven by the test. Read blocks
// until the test calls Feed, Fail, End or Close, which makes it possible to
// hold a producer "mid-read" deterministically.
//
//	r := testutils.NewScriptedReader()
//	r.Feed([]byte("abc")) // next Read returns "abc" (split if p is shorter)
//	r.End()               // then io.EOF
type ScriptedReader struct {
	chunks chan chunk
	closed chan struct{}

	mu      sync.Mutex
	pending []byte

	closeOnce sync.Once
	waiting   chan struct{} // signalled each time Read starts waiting
	reads     atomic.Int64
}

// NewScriptedReader creates a reader with nothing scripted.
func NewScriptedReader() *ScriptedReader {
	return &ScriptedReader{
		chunks:  make(chan chunk, 1024),
		closed:  make(chan struct{}),
		waiting: make(chan struct{}, 1),
	}
}

// Feed queues data for subsequent reads.
func (r *ScriptedReader) Feed(data []byte) {
	r.chunks <- chunk{data: append([]byte(nil), data...)}
}

// Fail makes the next read that finds no pending data return err.
func (r *ScriptedReader) Fail(err error) {
	r.chunks <- chunk{err: err}
}

// End is Fail(io.EOF).
func (r *ScriptedReader) End() {
	r.Fail(io.EOF)
}

// Read implements io.Reader.
func (r *ScriptedReader) Read(p []byte) (int, error) {
	r.reads.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) == 0 {
		var c chunk
		select {
		case c = <-r.chunks:
		default:
			select {
			case r.waiting <- struct{}{}:
			default:
			}
			select {
			case c = <-r.chunks:
			case <-r.closed:
				return 0, os.ErrClosed
			}
		}
		if c.err != nil {
			return 0, c.err
		}
		r.pending = c.data
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close unblocks a pending Read with os.ErrClosed.
func (r *ScriptedReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

// WaitForBlockedRead waits until a Read is parked waiting for script input.
func (r *ScriptedReader) WaitForBlockedRead(timeout time.Duration) bool {
	select {
	case <-r.waiting:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Reads returns how many times Read was called.
func (r *ScriptedReader) Reads() int64 {
	return r.reads.Load()
}

// SlowReader returns data one byte per Read, sleeping delay before each byte,
// then io.EOF.
type SlowReader struct {
	data  []byte
	delay time.Duration
}

// NewSlowReader creates a SlowReader over a copy of data.
func NewSlowReader(data []byte, delay time.Duration) *SlowReader {
	return &SlowReader{data: append([]byte(nil), data...), delay: delay}
}

func (s *SlowReader) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	time.Sleep(s.delay)
	p[0] = s.data[0]
	s.data = s.data[1:]
	return 1, nil
}

// CountingReader produces an endless 0,1,...,255,0,1,... sequence as fast as
// it is read.
type CountingReader struct {
	next  byte
	total atomic.Uint64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = c.next
		c.next++
	}
	c.total.Add(uint64(len(p)))
	return len(p), nil
}

// Total returns how many bytes have been produced.
func (c *CountingReader) Total() uint64 {
	return c.total.Load()
}
