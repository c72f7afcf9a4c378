package main

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/srg/bsrc/internal/frame"
	"github.com/srg/bsrc/pkg/stream"
)

const (
	statusUpdateInterval = 100 * time.Millisecond
	clearLineSequence    = "\r\033[K"
)

var (
	runningColor = color.New(color.FgGreen)
	drainedColor = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed)
)

// StatusPrinter keeps one terminal line updated with the latest frame status
// of a pump.
//
// Usage:
//
//	p := NewStatusPrinter(os.Stderr, pump.Latest)
//	p.Start()
//	defer p.Stop()
//
// A StatusPrinter is single-use. Start may be called at most once; Stop may
// be called any number of times and renders the final status on its own line.
type StatusPrinter struct {
	out      io.Writer
	latest   func() (frame.Status, bool)
	interval time.Duration
	ticker   atomic.Pointer[time.Ticker]
	stopChan chan struct{}
	done     chan struct{} // closed when goroutine exits
	started  atomic.Bool
}

// NewStatusPrinter creates a printer that polls latest on every refresh.
func NewStatusPrinter(out io.Writer, latest func() (frame.Status, bool)) *StatusPrinter {
	return &StatusPrinter{
		out:      out,
		latest:   latest,
		interval: statusUpdateInterval,
	}
}

// Start begins refreshing the status line in a background goroutine.
// Panics if called more than once on the same StatusPrinter instance.
func (p *StatusPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("StatusPrinter.Start called more than once")
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	ticker := time.NewTicker(p.interval)
	p.ticker.Store(ticker)

	p.render()

	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(p.out, "\nstatus printer panic: %v\n", r)
			}
		}()

		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				p.render()
			}
		}
	}()
}

// Stop terminates the refresh goroutine and prints the final status followed
// by a newline. Only the first call has an effect.
func (p *StatusPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done

	p.render()
	fmt.Fprintln(p.out)
}

func (p *StatusPrinter) render() {
	st, ok := p.latest()
	if !ok {
		fmt.Fprint(p.out, clearLineSequence+"waiting for first frame...")
		return
	}
	fmt.Fprint(p.out, clearLineSequence+colorFor(st).Sprint(FormatStatus(st)))
}

func colorFor(st frame.Status) *color.Color {
	switch {
	case !st.Finished():
		return runningColor
	case isCleanFinish(st.Err):
		return drainedColor
	default:
		return failedColor
	}
}

// FormatStatus renders st as a single uncolored line.
func FormatStatus(st frame.Status) string {
	state := "running"
	if st.Finished() {
		state = terminalLabel(st.Err)
	}
	return fmt.Sprintf("[%s] %s  frame %d  drained %s  buffered %s  delivered %s",
		st.Name, state, st.Frame,
		formatBytes(uint64(st.Drained)), formatBytes(uint64(st.Buffered)), formatBytes(st.Delivered))
}

// terminalLabel names how a stream finished.
func terminalLabel(err error) string {
	switch {
	case err == nil:
		return "running"
	case errors.Is(err, stream.ErrEndOfSource):
		return "drained"
	case errors.Is(err, stream.ErrClosed):
		return "closed"
	default:
		return "failed: " + err.Error()
	}
}

func isCleanFinish(err error) bool {
	return errors.Is(err, stream.ErrEndOfSource) || errors.Is(err, stream.ErrClosed)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
