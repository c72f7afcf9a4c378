package frame

import (
	"sync"

	"github.com/smallnest/ringbuffer"
)

// History keeps the most recent bytes seen by a Pump. When full, the oldest
// bytes are discarded to make room.
type History struct {
	mu      sync.Mutex
	ring    *ringbuffer.RingBuffer
	scratch []byte
	total   uint64
}

// NewHistory creates a History holding up to size bytes. size <= 0 disables it.
func NewHistory(size int) *History {
	if size <= 0 {
		return &History{}
	}
	return &History{
		ring:    ringbuffer.New(size),
		scratch: make([]byte, size),
	}
}

// Write records p, dropping the oldest bytes if needed. It never fails.
func (h *History) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(p)
	h.total += uint64(n)
	if h.ring == nil || n == 0 {
		return n, nil
	}

	size := h.ring.Capacity()
	if len(p) > size {
		p = p[len(p)-size:]
	}
	if excess := len(p) - (size - h.ring.Length()); excess > 0 {
		_, _ = h.ring.TryRead(h.scratch[:excess])
	}
	_, _ = h.ring.Write(p)
	return n, nil
}

// Bytes returns a copy of the retained bytes, oldest first.
func (h *History) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ring == nil || h.ring.IsEmpty() {
		return nil
	}

	n, _ := h.ring.TryRead(h.scratch)
	out := append([]byte(nil), h.scratch[:n]...)
	_, _ = h.ring.Write(out)
	return out
}

// Len returns the number of retained bytes.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ring == nil {
		return 0
	}
	return h.ring.Length()
}

// Total returns how many bytes were ever written, retained or not.
func (h *History) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}
