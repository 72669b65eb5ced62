package xsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// DefaultDeadlockTimeout is how long a lock may be held before it is
// reported to the error monitor.
var DefaultDeadlockTimeout = time.Minute

func fixCtx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// Mutex is a mutex that logs (at the trace level) its lock/unlock events
// and reports locks held for too long.
//
// The zero value is ready to use.
type Mutex struct {
	mutex sync.Mutex

	// DeadlockTimeout overrides DefaultDeadlockTimeout if positive.
	DeadlockTimeout time.Duration

	cancelFunc context.CancelFunc
}

func (m *Mutex) deadlockTimeout() time.Duration {
	if m.DeadlockTimeout > 0 {
		return m.DeadlockTimeout
	}
	return DefaultDeadlockTimeout
}

func (m *Mutex) ManualLock(ctx context.Context) {
	ctx = fixCtx(ctx)
	noLogging := IsNoLogging(ctx)
	if !noLogging {
		logger.Tracef(ctx, "locking")
	}
	m.mutex.Lock()

	watchCtx, cancelFn := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelFunc = cancelFn
	timeout := m.deadlockTimeout()
	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-watchCtx.Done():
			return
		case <-t.C:
		}
		errmon.ObserveErrorCtx(watchCtx, fmt.Errorf("the lock is held for more than %v, probably a deadlock", timeout))
	}()

	if !noLogging {
		logger.Tracef(ctx, "locked")
	}
}

func (m *Mutex) ManualUnlock(ctx context.Context) {
	ctx = fixCtx(ctx)
	noLogging := IsNoLogging(ctx)
	if !noLogging {
		logger.Tracef(ctx, "unlocking")
	}

	m.cancelFunc()
	m.cancelFunc = nil
	m.mutex.Unlock()

	if !noLogging {
		logger.Tracef(ctx, "unlocked")
	}
}

func (m *Mutex) Do(
	ctx context.Context,
	fn func(),
) {
	m.ManualLock(ctx)
	defer m.ManualUnlock(ctx)
	fn()
}

func DoR1[R0 any](
	ctx context.Context,
	m *Mutex,
	fn func() R0,
) R0 {
	var r0 R0
	m.Do(ctx, func() {
		r0 = fn()
	})
	return r0
}

func DoR2[R0, R1 any](
	ctx context.Context,
	m *Mutex,
	fn func() (R0, R1),
) (R0, R1) {
	var (
		r0 R0
		r1 R1
	)
	m.Do(ctx, func() {
		r0, r1 = fn()
	})
	return r0, r1
}
