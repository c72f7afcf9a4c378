package registry

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/srg/bsrc/internal/testutils"
	"github.com/srg/bsrc/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStream(t *testing.T, name string) (*stream.BufferedSource, *testutils.ScriptedReader) {
	t.Helper()
	r := testutils.NewScriptedReader()
	src, err := stream.New(r, 8, &stream.Options{Name: name, CloseSource: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src, r
}

func TestRegistry_AddGet(t *testing.T) {
	reg := New(nil)
	src, _ := newStream(t, "alpha")

	require.NoError(t, reg.Add(src))
	got, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Same(t, src, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Error(t, reg.Add(nil))
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := New(nil)
	first, _ := newStream(t, "dup")
	second, _ := newStream(t, "dup")

	require.NoError(t, reg.Add(first))
	err := reg.Add(second)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorContains(t, err, "dup")

	got, _ := reg.Get("dup")
	assert.Same(t, first, got, "a rejected Add MUST not replace the registered stream")
}

func TestRegistry_RemoveClosesStream(t *testing.T) {
	reg := New(nil)
	src, _ := newStream(t, "gone")
	require.NoError(t, reg.Add(src))

	require.NoError(t, reg.Remove("gone"))
	assert.Equal(t, stream.StateTerminated, src.State())
	assert.ErrorIs(t, src.Err(), stream.ErrClosed)
	assert.Zero(t, reg.Len())

	assert.ErrorIs(t, reg.Remove("gone"), ErrNotFound)
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := New(nil)
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		src, _ := newStream(t, name)
		require.NoError(t, reg.Add(src))
	}

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := New(nil)
	var sources []*stream.BufferedSource
	for i := 0; i < 5; i++ {
		src, r := newStream(t, fmt.Sprintf("s%d", i))
		r.Feed([]byte(strings.Repeat("x", i)))
		require.NoError(t, reg.Add(src))
		sources = append(sources, src)
	}

	reg.CloseAll()

	assert.Zero(t, reg.Len())
	for _, src := range sources {
		select {
		case <-src.Done():
		default:
			t.Fatalf("CloseAll MUST join the producer of %s", src.Name())
		}
	}
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	reg := New(nil)
	src, _ := newStream(t, "race")

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Add(src) == nil {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added, "exactly one concurrent Add MUST win")
	assert.Equal(t, 1, reg.Len())
}
