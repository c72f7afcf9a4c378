package stream

// ring is the storage half of BufferedSource. It holds capacity = requested+1
// bytes so that head == tail always means empty and a full ring still has one
// unused slot. None of its methods lock; BufferedSource holds mu around every
// call.
type ring struct {
	buf  []byte
	head int // next byte to read
	tail int // one past the last byte written
}

func newRing(requested int) ring {
	return ring{buf: make([]byte, requested+1)}
}

func (r *ring) capacity() int {
	return len(r.buf)
}

func (r *ring) occupied() int {
	c := len(r.buf)
	return (r.tail - r.head + c) % c
}

func (r *ring) freeSpace() int {
	return len(r.buf) - 1 - r.occupied()
}

// writableRun returns the length of the free region starting at tail that can
// be filled by a single read without crossing the end of the array.
//
//	head == 0:      tail .. cap-2 (slot cap-1 stays empty)
//	head <= tail:   tail .. cap-1 (tail wraps to 0, which is not head)
//	head >  tail:   tail .. head-2
func (r *ring) writableRun() int {
	c := len(r.buf)
	switch {
	case r.head == 0:
		return c - r.tail - 1
	case r.head <= r.tail:
		return c - r.tail
	default:
		return r.head - r.tail - 1
	}
}

// writable returns the slice a producer read may fill.
func (r *ring) writable() []byte {
	return r.buf[r.tail : r.tail+r.writableRun()]
}

func (r *ring) advanceTail(n int) {
	r.tail = (r.tail + n) % len(r.buf)
}

func (r *ring) advanceHead(n int) {
	r.head = (r.head + n) % len(r.buf)
}

// peekByte returns the byte at head. The ring must not be empty.
func (r *ring) peekByte() byte {
	return r.buf[r.head]
}

// copyOut copies n buffered bytes starting at head into dst and advances head.
// n must not exceed occupied() or len(dst).
func (r *ring) copyOut(dst []byte, n int) {
	if r.head+n <= len(r.buf) {
		copy(dst[:n], r.buf[r.head:r.head+n])
	} else {
		first := copy(dst, r.buf[r.head:])
		copy(dst[first:n], r.buf[:n-first])
	}
	r.advanceHead(n)
}
