package reconciler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coldtrace/coldtrace/internal/reconciler"
)

type countingAdmins struct {
	calls atomic.Int32
	err   error
}

func (c *countingAdmins) ReconcileAll(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestReconciler_RunsOnInterval(t *testing.T) {
	admins := &countingAdmins{}
	r := reconciler.New(admins, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return admins.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancellation")
	}
}

func TestReconciler_ContinuesAfterFailure(t *testing.T) {
	admins := &countingAdmins{err: errors.New("database unavailable")}
	r := reconciler.New(admins, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	assert.Eventually(t, func() bool { return admins.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
