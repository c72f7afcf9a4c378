package groutine

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGo_PropagatesNameAndLabels(t *testing.T) {
	var gotName, gotLabel string
	var gid uint64

	done := Go(context.Background(), "worker-42", func(ctx context.Context) {
		gotName = GetName(ctx)
		gotLabel, _ = pprof.Label(ctx, "goroutine_name")
		gid = GetGID()
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}

	assert.Equal(t, "worker-42", gotName)
	assert.Equal(t, "worker-42", gotLabel)
	assert.NotZero(t, gid)
	assert.NotEqual(t, GetGID(), gid, "fn MUST run on a different goroutine")
}

func TestGo_DoneClosedAfterRecoveredPanic(t *testing.T) {
	done := Go(context.Background(), "panicky", func(ctx context.Context) {
		defer func() { _ = recover() }()
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel MUST be closed after fn returns")
	}
}

func TestGo_NilParentContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	done := Go(nil, "nil-parent", func(ctx context.Context) {
		assert.NotNil(t, ctx)
	})
	<-done
}

func TestGetName_Empty(t *testing.T) {
	assert.Equal(t, "", GetName(context.Background()))
	//nolint:staticcheck
	assert.Equal(t, "", GetName(nil))
}
