// Package frame drains a stream.BufferedSource once per frame tick without
// ever blocking on the source, the way a render loop consumes network input.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
	"github.com/srg/bsrc/pkg/stream"
)

const (
	DefaultInterval     = 16 * time.Millisecond
	DefaultBudget       = 32 * 1024
	DefaultStatusEvents = 64

	maxChunk = 32 * 1024
)

// Source is the non-blocking side of a stream.BufferedSource.
type Source interface {
	ReadInto(dest []byte, offset, length int) (int, error)
	AvailableCount() (int, error)
}

// Status describes one frame.
type Status struct {
	Name      string
	Frame     uint64
	Drained   int       // bytes drained in this frame
	Buffered  int       // bytes left buffered after the frame
	Delivered uint64    // bytes written so far
	Err       error     // terminal error once the source is exhausted
	At        time.Time // when the frame finished
}

// Finished reports whether the source has no more data to give.
func (s Status) Finished() bool {
	return s.Err != nil
}

// Options configures a Pump. Zero values use the package defaults.
type Options struct {
	Name         string
	Interval     time.Duration
	Budget       int      // max bytes per frame
	History      *History // optional record of the latest bytes
	StatusEvents uint32   // status events kept before the oldest is overwritten
	Logger       *logrus.Logger
}

// Pump moves bytes from a Source to an io.Writer once per frame.
type Pump struct {
	src     Source
	out     io.Writer
	name    string
	buf     []byte
	budget  int
	every   time.Duration
	history *History
	logger  *logrus.Entry

	events  mpmc.RichOverlappedRingBuffer[Status]
	dropped atomic.Uint64
	latest  atomic.Pointer[Status]

	frame     uint64
	delivered atomic.Uint64
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// NewPump creates a Pump. Tick and Run must not be called concurrently.
func NewPump(src Source, out io.Writer, opts *Options) (*Pump, error) {
	if src == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if out == nil {
		return nil, fmt.Errorf("writer cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	events := opts.StatusEvents
	if events == 0 {
		events = DefaultStatusEvents
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &Pump{
		src:     src,
		out:     out,
		name:    opts.Name,
		buf:     make([]byte, min(budget, maxChunk)),
		budget:  budget,
		every:   interval,
		history: opts.History,
		logger:  logger.WithField("pump", opts.Name),
		events:  mpmc.NewOverlappedRingBuffer[Status](events),
	}, nil
}

// Tick drains up to the frame budget without blocking. It returns the
// source's terminal error once the source is exhausted, or a write error.
func (p *Pump) Tick() (Status, error) {
	p.frame++
	drained := 0

	var terminal error
	for drained < p.budget {
		n, err := p.src.ReadInto(p.buf, 0, min(len(p.buf), p.budget-drained))
		if err != nil {
			terminal = err
			break
		}
		if n == 0 {
			break
		}

		if _, err := p.out.Write(p.buf[:n]); err != nil {
			return p.publish(drained, 0, nil), fmt.Errorf("failed to write frame %d: %w", p.frame, err)
		}
		if p.history != nil {
			_, _ = p.history.Write(p.buf[:n])
		}
		drained += n
		p.delivered.Add(uint64(n))
	}

	buffered := 0
	if terminal == nil {
		var err error
		buffered, err = p.src.AvailableCount()
		if err != nil && drained == 0 {
			terminal = err
		}
	}

	st := p.publish(drained, buffered, terminal)
	return st, terminal
}

func (p *Pump) publish(drained, buffered int, terminal error) Status {
	st := Status{
		Name:      p.name,
		Frame:     p.frame,
		Drained:   drained,
		Buffered:  buffered,
		Delivered: p.delivered.Load(),
		Err:       terminal,
		At:        time.Now(),
	}

	overwrites, err := p.events.EnqueueM(st)
	if err != nil {
		p.logger.Warnf("failed to queue status event: %v", err)
	}
	p.dropped.Add(uint64(overwrites))
	p.latest.Store(&st)
	return st
}

// Run ticks every frame interval until the source is exhausted or ctx is done.
// Reaching the end of the source or a closed source is a normal finish.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	for {
		st, err := p.Tick()
		if err != nil {
			if errors.Is(err, stream.ErrEndOfSource) || errors.Is(err, stream.ErrClosed) {
				p.logger.WithFields(logrus.Fields{"frames": st.Frame, "delivered": st.Delivered}).
					Debug("pump finished")
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Statuses drains the queued status events, oldest first.
func (p *Pump) Statuses() []Status {
	var out []Status
	for !p.events.IsEmpty() {
		st, err := p.events.Dequeue()
		if err != nil {
			break
		}
		out = append(out, st)
	}
	return out
}

// Latest returns the most recent status, or false before the first tick.
func (p *Pump) Latest() (Status, bool) {
	st := p.latest.Load()
	if st == nil {
		return Status{}, false
	}
	return *st, true
}

// Dropped returns how many status events were overwritten before being read.
func (p *Pump) Dropped() uint64 {
	return p.dropped.Load()
}

// Delivered returns the number of bytes written so far.
func (p *Pump) Delivered() uint64 {
	return p.delivered.Load()
}
