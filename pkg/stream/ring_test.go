package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Arithmetic(t *testing.T) {
	tests := []struct {
		name         string
		head, tail   int
		wantOccupied int
		wantFree     int
		wantRun      int
	}{
		{name: "empty at origin", head: 0, tail: 0, wantOccupied: 0, wantFree: 4, wantRun: 4},
		{name: "full from origin", head: 0, tail: 4, wantOccupied: 4, wantFree: 0, wantRun: 0},
		{name: "empty mid array", head: 3, tail: 3, wantOccupied: 0, wantFree: 4, wantRun: 2},
		{name: "run stops at array end", head: 2, tail: 4, wantOccupied: 2, wantFree: 2, wantRun: 1},
		{name: "wrapped data", head: 4, tail: 1, wantOccupied: 2, wantFree: 2, wantRun: 2},
		{name: "wrapped full", head: 3, tail: 2, wantOccupied: 4, wantFree: 0, wantRun: 0},
		{name: "tail at origin", head: 2, tail: 0, wantOccupied: 3, wantFree: 1, wantRun: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRing(4)
			r.head, r.tail = tt.head, tt.tail

			assert.Equal(t, 5, r.capacity())
			assert.Equal(t, tt.wantOccupied, r.occupied())
			assert.Equal(t, tt.wantFree, r.freeSpace())
			assert.Equal(t, tt.wantRun, r.writableRun())
			assert.LessOrEqual(t, r.writableRun(), r.freeSpace(), "run MUST never exceed free space")
			assert.Len(t, r.writable(), tt.wantRun)
		})
	}
}

func TestRing_CopyOutWraps(t *testing.T) {
	r := newRing(4)
	copy(r.buf, []byte{'d', 'e', 'x', 'b', 'c'})
	r.head, r.tail = 3, 2 // "bcde" wrapped across the end

	dst := make([]byte, 6)
	r.copyOut(dst[1:], 4)

	assert.Equal(t, []byte{0, 'b', 'c', 'd', 'e', 0}, dst)
	assert.Equal(t, 2, r.head)
	assert.Equal(t, 0, r.occupied())
}

func TestRing_CopyOutContiguous(t *testing.T) {
	r := newRing(4)
	copy(r.buf, []byte("abcd"))
	r.tail = 4

	dst := make([]byte, 2)
	r.copyOut(dst, 2)

	assert.Equal(t, []byte("ab"), dst)
	assert.Equal(t, 2, r.head)
	assert.Equal(t, 2, r.occupied())
}

func TestRing_AdvanceWrapsModuloCapacity(t *testing.T) {
	r := newRing(2)
	r.tail = 2
	r.advanceTail(1)
	assert.Equal(t, 0, r.tail)

	r.head = 2
	r.advanceHead(2)
	assert.Equal(t, 1, r.head)
}
