package framepool

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/observability"
	"github.com/xaionaro-go/screensnap/pkg/xsync"
)

type SessionState int

const (
	SessionStateCreated = SessionState(iota)
	SessionStateStarted
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateCreated:
		return "created"
	case SessionStateStarted:
		return "started"
	case SessionStateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// Session binds a capture target to a pool: after StartCapture the
// frame source of the pool delivers pictures of the target into the pool.
type Session struct {
	pool   *FramePool
	target capturetarget.Target

	locker   xsync.Mutex
	state    SessionState
	cancelFn context.CancelFunc
	done     chan struct{}
}

func newSession(
	pool *FramePool,
	target capturetarget.Target,
) *Session {
	return &Session{
		pool:   pool,
		target: target,
		done:   make(chan struct{}),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("session<%s>", s.target)
}

func (s *Session) Target() capturetarget.Target {
	return s.target
}

func (s *Session) State(ctx context.Context) SessionState {
	return xsync.DoR1(ctx, &s.locker, func() SessionState {
		return s.state
	})
}

// StartCapture launches the frame source loop. The loop does not
// depend on ctx cancellation: it lives until the session is closed.
func (s *Session) StartCapture(ctx context.Context) error {
	logger.Debugf(ctx, "StartCapture")
	defer logger.Debugf(ctx, "/StartCapture")
	return xsync.DoR1(ctx, &s.locker, func() error {
		switch s.state {
		case SessionStateStarted:
			return ErrSessionAlreadyStarted{}
		case SessionStateClosed:
			return ErrSessionClosed{}
		}

		loopCtx, cancelFn := context.WithCancel(context.WithoutCancel(ctx))
		s.cancelFn = cancelFn
		s.state = SessionStateStarted
		interval := s.pool.config.FrameInterval
		observability.Go(loopCtx, func() {
			defer close(s.done)
			logger.Debugf(loopCtx, "frame source loop: %s", s.target)
			defer logger.Debugf(loopCtx, "/frame source loop: %s", s.target)
			err := s.pool.source.Loop(loopCtx, interval, s.target, s.pool.deliver)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf(loopCtx, "the frame source loop for %s failed: %v", s.target, err)
			}
		})
		return nil
	})
}

// Done is closed when the frame source loop exits. If the session
// was never started, it is closed by Close.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the frame source loop without waiting for it to exit.
// Closing a closed session is a no-op.
func (s *Session) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	s.locker.Do(ctx, func() {
		switch s.state {
		case SessionStateClosed:
			return
		case SessionStateCreated:
			close(s.done)
		case SessionStateStarted:
			s.cancelFn()
		}
		s.state = SessionStateClosed
	})
	return nil
}
