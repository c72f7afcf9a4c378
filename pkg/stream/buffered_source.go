package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/bsrc/internal/groutine"
)

// maxConsecutiveEmptyReads bounds how long a source may keep returning (0, nil)
// before the producer gives up on it with io.ErrNoProgress.
const maxConsecutiveEmptyReads = 100

// noopLogger is shared by every BufferedSource created without a logger.
var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Options configures a BufferedSource. A nil *Options is valid.
type Options struct {
	Name        string         // used in log fields; a random id when empty
	Logger      *logrus.Logger // optional logger (nil = no-op logger)
	CloseSource bool           // Close also closes the source when it implements io.Closer
}

// BufferedSource decouples a blocking io.Reader from a consumer that must not
// block. A background producer goroutine keeps a fixed-size ring as full as
// possible; consumer methods only inspect or drain the ring.
//
// All methods are safe for concurrent use.
type BufferedSource struct {
	name        string
	logger      *logrus.Entry
	src         io.Reader
	closeSource bool

	mu          sync.Mutex
	cond        *sync.Cond // producer parks here when the ring is full
	ring        ring
	terminalErr error // write-once
	state       State

	sourceOps      uint64
	bytesIn        uint64
	bytesDelivered uint64
	parks          uint64

	done            <-chan struct{} // closed when the producer goroutine exits
	closeSourceOnce sync.Once
}

// New starts a producer goroutine reading src into a ring that can hold up to
// capacity unread bytes.
func New(src io.Reader, capacity int, opts *Options) (*BufferedSource, error) {
	if src == nil {
		return nil, invalidArgument("source cannot be nil")
	}
	if capacity <= 0 {
		return nil, invalidArgument("capacity must be > 0, got %d", capacity)
	}
	if opts == nil {
		opts = &Options{}
	}

	name := opts.Name
	if name == "" {
		name = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger
	}

	b := &BufferedSource{
		name:        name,
		logger:      logger.WithFields(logrus.Fields{"stream": name, "capacity": capacity}),
		src:         src,
		closeSource: opts.CloseSource,
		ring:        newRing(capacity),
		state:       StateRunning,
	}
	b.cond = sync.NewCond(&b.mu)

	b.done = groutine.Go(context.Background(), "stream-producer-"+name, func(ctx context.Context) {
		b.produce(ctx)
	})

	return b, nil
}

// produce is the producer loop. It returns once a terminal error is installed.
func (b *BufferedSource) produce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("producer panicked (recovered): %v", r)
			b.commit(0, fmt.Errorf("source panic: %v", r))
		}
	}()

	b.logger.WithFields(logrus.Fields{
		"goroutine": groutine.GetName(ctx),
		"gid":       groutine.GetGID(),
	}).Debug("producer started")

	emptyReads := 0
	for {
		region, ok := b.claim()
		if !ok {
			return
		}

		n, err := b.src.Read(region)
		if n < 0 || n > len(region) {
			n, err = 0, fmt.Errorf("source returned invalid count %d for %d byte read", n, len(region))
		}

		if n == 0 && err == nil {
			emptyReads++
			if emptyReads < maxConsecutiveEmptyReads {
				continue
			}
			err = io.ErrNoProgress
		} else {
			emptyReads = 0
		}

		if !b.commit(n, err) {
			return
		}
	}
}

// claim waits until the ring has free space and returns the contiguous region
// the next source read may fill. It returns false once a terminal error is set.
func (b *BufferedSource) claim() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if b.terminalErr != nil {
			b.terminateLocked()
			return nil, false
		}
		if b.ring.writableRun() > 0 {
			return b.ring.writable(), true
		}
		b.parks++
		b.logger.Debug("ring full, producer waiting for space")
		b.cond.Wait()
	}
}

// commit publishes n freshly read bytes and, when err is non-nil, installs the
// terminal error. Bytes returned alongside an error are kept. It returns
// whether the producer should continue.
func (b *BufferedSource) commit(n int, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sourceOps++
	if n > 0 {
		b.ring.advanceTail(n)
		b.bytesIn += uint64(n)
	}

	if err != nil {
		fields := logrus.Fields{"buffered": b.ring.occupied(), "bytes_in": b.bytesIn}
		if b.terminalErr != nil {
			// stopped while the read was in flight; the first error stands
			b.logger.WithFields(fields).Debugf("source read ended after stop: %v", err)
			b.terminateLocked()
			return false
		}

		terminal := classify(err)
		b.terminalErr = terminal
		if errors.Is(terminal, ErrEndOfSource) {
			b.logger.WithFields(fields).Debug("producer reached end of source")
		} else {
			b.logger.WithFields(fields).Warnf("producer stopped on source error: %v", err)
		}
		b.terminateLocked()
		return false
	}

	b.cond.Broadcast()
	return true
}

func (b *BufferedSource) terminateLocked() {
	b.state = StateTerminated
	b.cond.Broadcast()
}

func classify(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrEndOfSource
	}
	return &SourceError{Err: err}
}

// HasAtLeast reports whether at least n bytes are buffered. n must be in
// [0, Capacity()]. When fewer than n bytes are buffered and the producer has
// stopped, the terminal error is returned since n bytes will never arrive.
func (b *BufferedSource) HasAtLeast(n int) (bool, error) {
	if n == 0 {
		return true, nil
	}
	if n < 0 || n >= b.ring.capacity() {
		return false, invalidArgument("HasAtLeast(%d): want 0..%d", n, b.ring.capacity()-1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ring.occupied() >= n {
		return true, nil
	}
	if b.terminalErr != nil {
		return false, b.terminalErr
	}
	b.cond.Broadcast()
	return false, nil
}

// AvailableCount returns the number of buffered bytes. Once the buffer is
// empty and the producer has stopped, it returns the terminal error.
func (b *BufferedSource) AvailableCount() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.ring.occupied()
	if n == 0 && b.terminalErr != nil {
		return 0, b.terminalErr
	}
	b.cond.Broadcast()
	return n, nil
}

// ReadByte returns the next buffered byte. It never blocks: with nothing
// buffered it returns ErrNoData while the producer runs, and the terminal
// error afterwards.
func (b *BufferedSource) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ring.occupied() == 0 {
		if b.terminalErr != nil {
			return 0, b.terminalErr
		}
		return 0, ErrNoData
	}

	c := b.ring.peekByte()
	b.ring.advanceHead(1)
	b.bytesDelivered++
	b.cond.Broadcast()
	return c, nil
}

// ReadInto copies up to length buffered bytes into dest[offset:]. It returns
// the number of bytes copied, which is less than length when fewer are
// buffered and may be zero. The terminal error is returned only when nothing
// is buffered.
func (b *BufferedSource) ReadInto(dest []byte, offset, length int) (int, error) {
	if offset < 0 || length < 0 || offset+length > len(dest) {
		return 0, invalidArgument("ReadInto(len=%d, offset=%d, length=%d)", len(dest), offset, length)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if avail := b.ring.occupied(); length > avail {
		length = avail
	}
	if length == 0 && b.terminalErr != nil {
		return 0, b.terminalErr
	}

	b.ring.copyOut(dest[offset:], length)
	b.bytesDelivered += uint64(length)
	b.cond.Broadcast()
	return length, nil
}

// Read implements io.Reader on top of ReadInto without blocking.
//
// Return values:
//   - (n, nil) where n > 0: n buffered bytes were copied
//   - (0, ErrNoData): nothing buffered yet, retry later
//   - (0, terminal error): the buffer is drained and the producer has stopped
//   - (0, nil): only when len(p) == 0
func (b *BufferedSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := b.ReadInto(p, 0, len(p))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoData
	}
	return n, nil
}

// Close stops the producer and waits for its goroutine to exit. Buffered
// bytes stay readable; ErrClosed is reported once they are drained. If the
// producer had already stopped, the earlier terminal error is kept.
//
// Close is idempotent and always returns nil.
func (b *BufferedSource) Close() error {
	b.mu.Lock()
	if b.terminalErr == nil {
		b.terminalErr = ErrClosed
		b.logger.WithField("buffered", b.ring.occupied()).Debug("closing")
	}
	b.cond.Broadcast()
	b.mu.Unlock()

	if b.closeSource {
		b.closeSourceOnce.Do(func() {
			if c, ok := b.src.(io.Closer); ok {
				if err := c.Close(); err != nil {
					b.logger.Warnf("failed to close source: %v", err)
				}
			}
		})
	}

	<-b.done
	return nil
}

// Done returns a channel that is closed once the producer goroutine has exited.
func (b *BufferedSource) Done() <-chan struct{} {
	return b.done
}

// State returns the producer state.
func (b *BufferedSource) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the terminal error, or nil while the producer is running.
func (b *BufferedSource) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminalErr
}

// Capacity returns the maximum number of bytes that can be buffered unread.
func (b *BufferedSource) Capacity() int {
	return b.ring.capacity() - 1
}

// Name returns the name used in log fields.
func (b *BufferedSource) Name() string {
	return b.name
}

// Stats returns an instantaneous snapshot of the counters.
func (b *BufferedSource) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Capacity:        b.ring.capacity() - 1,
		Buffered:        b.ring.occupied(),
		State:           b.state,
		Terminal:        b.terminalErr,
		SourceOps:       b.sourceOps,
		BytesFromSource: b.bytesIn,
		BytesDelivered:  b.bytesDelivered,
		ProducerParks:   b.parks,
	}
}
