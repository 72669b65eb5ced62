package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/framepool"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

const DefaultTimeout = 5 * time.Second

// SessionStopTimeout limits how long an aborted Take waits for
// the frame source to stop.
var SessionStopTimeout = time.Second

// Snapshotter takes single frames of capture targets.
type Snapshotter struct {
	Source framepool.FrameSource

	// Timeout limits how long Take waits for a frame; zero disables the limit.
	Timeout time.Duration

	// FrameInterval is passed to the frame source; zero means the
	// framepool default.
	FrameInterval time.Duration

	// NewFramePool overrides NewFramePool.
	NewFramePool FramePoolFactory
}

func New(source framepool.FrameSource) *Snapshotter {
	return &Snapshotter{
		Source:  source,
		Timeout: DefaultTimeout,
	}
}

type result struct {
	Surface *gpu.Surface
	Error   error
}

// capture is the state of a single Take call.
type capture struct {
	device   GraphicsDevice
	pool     FramePool
	session  CaptureSession
	state    atomic.Int32
	resultCh chan result
}

func (c *capture) State() State {
	return State(c.state.Load())
}

func (c *capture) setState(s State) {
	c.state.Store(int32(s))
}

func (c *capture) transit(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Take captures exactly one frame of the target and returns a CPU-readable
// copy of it. The returned surface belongs to the caller, who has to
// release it.
//
// The frame pool and the capture session exist only within the call:
// both are closed before Take returns, on every path.
func (s *Snapshotter) Take(
	ctx context.Context,
	device GraphicsDevice,
	target capturetarget.Target,
) (_ret *gpu.Surface, _err error) {
	ctx = belt.WithField(ctx, "capture_id", uuid.New().String())
	logger.Debugf(ctx, "Take(ctx, %s)", target)
	defer func() { logger.Debugf(ctx, "/Take(ctx, %s): %v %v", target, _ret, _err) }()

	if device == nil {
		return nil, fmt.Errorf("the graphics device is nil")
	}
	if s.Source == nil {
		return nil, fmt.Errorf("the frame source is nil")
	}

	size, err := s.Source.TargetSize(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("unable to get the size of %s: %w", target, err)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, ErrInvalidTargetSize{Width: size.X, Height: size.Y}
	}

	newFramePool := s.NewFramePool
	if newFramePool == nil {
		newFramePool = NewFramePool
	}
	var poolOpts []framepool.Option
	if s.FrameInterval > 0 {
		poolOpts = append(poolOpts, framepool.OptionFrameInterval(s.FrameInterval))
	}
	pool, err := newFramePool(ctx, device, s.Source, size, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create a frame pool of size %v: %w", size, err)
	}

	c := &capture{
		device:   device,
		pool:     pool,
		resultCh: make(chan result, 1),
	}
	c.setState(StateArmed)

	c.session, err = pool.CreateCaptureSession(ctx, target)
	if err != nil {
		err = fmt.Errorf("unable to create a capture session for %s: %w", target, err)
		c.setState(StateAborted)
		return nil, appendErr(err, c.teardown(ctx))
	}

	pool.OnFrameArrived(c.onFrameArrived)

	c.setState(StateCapturing)
	if err := c.session.StartCapture(ctx); err != nil {
		err = fmt.Errorf("unable to start capturing %s: %w", target, err)
		if c.transit(StateCapturing, StateAborted) {
			return nil, appendErr(err, c.teardown(ctx))
		}
		logger.Warnf(ctx, "%v; but a frame is already being processed", err)
		return c.receive(ctx)
	}

	var timeoutCh <-chan time.Time
	if s.Timeout > 0 {
		timer := time.NewTimer(s.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var abortErr error
	select {
	case r := <-c.resultCh:
		return c.complete(ctx, r)
	case <-timeoutCh:
		abortErr = ErrCaptureTimeout{Timeout: s.Timeout}
	case <-ctx.Done():
		abortErr = ctx.Err()
	}

	if !c.transit(StateCapturing, StateAborted) {
		logger.Debugf(ctx, "%v, but the frame is already claimed; waiting for it", abortErr)
		return c.receive(ctx)
	}
	logger.Debugf(ctx, "aborting: %v", abortErr)
	if err := c.teardown(ctx); err != nil {
		logger.Errorf(ctx, "unable to tear down the aborted capture: %v", err)
	}
	c.waitSessionDone(ctx)
	return nil, abortErr
}

// waitSessionDone waits (at most SessionStopTimeout) for the frame
// source to stop, so that no notification is in flight once Take returns.
func (c *capture) waitSessionDone(ctx context.Context) {
	t := time.NewTimer(SessionStopTimeout)
	defer t.Stop()
	select {
	case <-c.session.Done():
	case <-t.C:
		logger.Warnf(ctx, "the frame source did not stop within %v", SessionStopTimeout)
	}
}

func (c *capture) receive(ctx context.Context) (*gpu.Surface, error) {
	return c.complete(ctx, <-c.resultCh)
}

func (c *capture) complete(ctx context.Context, r result) (*gpu.Surface, error) {
	if r.Error != nil {
		c.setState(StateAborted)
		return nil, r.Error
	}
	c.setState(StateCompleted)
	logger.Debugf(ctx, "captured %s", r.Surface)
	return r.Surface, nil
}

// onFrameArrived is invoked on the goroutine of the frame source.
func (c *capture) onFrameArrived(ctx context.Context) {
	frame, err := c.pool.TryGetNextFrame(ctx)
	if err != nil {
		if errors.As(err, &framepool.ErrNoFrameAvailable{}) {
			logger.Tracef(ctx, "a frame-arrived notification without a frame")
			return
		}
		if !c.transit(StateCapturing, StateCompleting) {
			logger.Debugf(ctx, "unable to get the next frame, but the capture is already %s: %v", c.State(), err)
			return
		}
		c.handOff(ctx, nil, fmt.Errorf("unable to get the next frame: %w", err))
		return
	}

	if !c.transit(StateCapturing, StateCompleting) {
		logger.Debugf(ctx, "ignoring %s: the capture is already %s", frame, c.State())
		if err := frame.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close %s: %v", frame, err)
		}
		return
	}

	surface, err := c.copyToStaging(ctx, frame.Surface(), frame.ContentSize)
	if closeErr := frame.Close(ctx); closeErr != nil {
		logger.Errorf(ctx, "unable to close %s: %v", frame, closeErr)
	}
	c.handOff(ctx, surface, err)
}

// copyToStaging copies src into a new staging texture; the returned
// surface covers only the contentSize part of it (the target may have
// shrunk since the pool was created).
func (c *capture) copyToStaging(
	ctx context.Context,
	src *gpu.Texture,
	contentSize image.Point,
) (*gpu.Surface, error) {
	staging, err := c.device.CreateStagingTexture(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("unable to create a staging texture for %s: %w", src, err)
	}
	if err := c.device.CopyResource(ctx, staging, src); err != nil {
		err = fmt.Errorf("unable to copy %s into %s: %w", src, staging, err)
		if releaseErr := c.device.ReleaseTexture(ctx, staging); releaseErr != nil {
			err = appendErr(err, fmt.Errorf("unable to release %s: %w", staging, releaseErr))
		}
		return nil, err
	}
	if contentSize != staging.Size() {
		logger.Debugf(ctx, "the picture %v is smaller than the buffer %v", contentSize, staging.Size())
		return gpu.NewCroppedSurface(staging, contentSize), nil
	}
	return gpu.NewSurface(staging), nil
}

// handOff closes the session and the pool and only then wakes up
// the caller; it is called at most once per capture.
func (c *capture) handOff(
	ctx context.Context,
	surface *gpu.Surface,
	err error,
) {
	if teardownErr := c.teardown(ctx); teardownErr != nil {
		if err != nil {
			err = appendErr(err, teardownErr)
		} else {
			logger.Errorf(ctx, "captured, but unable to tear down the capture: %v", teardownErr)
		}
	}
	c.resultCh <- result{Surface: surface, Error: err}
}

func (c *capture) teardown(ctx context.Context) error {
	var mErr *multierror.Error
	if c.session != nil {
		if err := c.session.Close(ctx); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the capture session: %w", err))
		}
	}
	if err := c.pool.Close(ctx); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to close the frame pool: %w", err))
	}
	return mErr.ErrorOrNil()
}

func appendErr(err error, errs ...error) error {
	mErr := multierror.Append(nil, err)
	for _, e := range errs {
		if e != nil {
			mErr = multierror.Append(mErr, e)
		}
	}
	if len(mErr.Errors) == 1 {
		return err
	}
	return mErr
}
