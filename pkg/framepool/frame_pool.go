package framepool

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/xsync"
)

// FramePool is a bounded queue of frames delivered by a FrameSource into
// preallocated device buffers. If all the buffers are in use, new
// pictures are dropped.
//
// All the methods are safe for concurrent use. The frame-arrived handler
// is invoked on the goroutine of the source, without the pool lock held,
// so the handler may call any method of the pool (including Close).
type FramePool struct {
	config Config
	device Device
	source FrameSource
	format gpu.PixelFormat
	size   image.Point

	locker   xsync.Mutex
	buffers  []*gpu.Texture
	free     []*gpu.Texture
	queue    []*Frame
	handler  func(context.Context)
	sessions []*Session
	closed   bool

	deliveredCount atomic.Uint64
	droppedCount   atomic.Uint64
}

// New allocates numBuffers textures of the given format and size.
func New(
	ctx context.Context,
	device Device,
	source FrameSource,
	format gpu.PixelFormat,
	numBuffers uint,
	size image.Point,
	opts ...Option,
) (_ret *FramePool, _err error) {
	logger.Debugf(ctx, "New(ctx, %s, %d, %v)", format, numBuffers, size)
	defer func() { logger.Debugf(ctx, "/New(ctx, %s, %d, %v): %v", format, numBuffers, size, _err) }()

	switch {
	case device == nil:
		return nil, ErrInvalidPoolParameters{Reason: "device is nil"}
	case source == nil:
		return nil, ErrInvalidPoolParameters{Reason: "frame source is nil"}
	case numBuffers == 0:
		return nil, ErrInvalidPoolParameters{Reason: "the amount of buffers is zero"}
	case size.X <= 0 || size.Y <= 0:
		return nil, ErrInvalidPoolParameters{Reason: fmt.Sprintf("invalid size %v", size)}
	}

	p := &FramePool{
		config: Options(opts).Config(),
		device: device,
		source: source,
		format: format,
		size:   size,
	}

	desc := gpu.TextureDesc{
		Width:     uint32(size.X),
		Height:    uint32(size.Y),
		Format:    format,
		Usage:     gpu.UsageDefault,
		BindFlags: gpu.BindShaderResource,
	}
	for i := uint(0); i < numBuffers; i++ {
		t, err := device.CreateTexture(ctx, desc, nil)
		if err != nil {
			var mErr *multierror.Error
			mErr = multierror.Append(mErr, fmt.Errorf("unable to allocate buffer #%d: %w", i, err))
			for _, allocated := range p.buffers {
				if err := device.ReleaseTexture(ctx, allocated); err != nil {
					mErr = multierror.Append(mErr, fmt.Errorf("unable to release %s: %w", allocated, err))
				}
			}
			return nil, mErr.ErrorOrNil()
		}
		p.buffers = append(p.buffers, t)
		p.free = append(p.free, t)
	}

	return p, nil
}

func (p *FramePool) Size() image.Point {
	return p.size
}

func (p *FramePool) Format() gpu.PixelFormat {
	return p.format
}

func (p *FramePool) NumBuffers() int {
	return len(p.buffers)
}

// Delivered is the amount of pictures that were accepted into the queue.
func (p *FramePool) Delivered() uint64 {
	return p.deliveredCount.Load()
}

// Dropped is the amount of pictures that were dropped because the pool
// was either full or closed.
func (p *FramePool) Dropped() uint64 {
	return p.droppedCount.Load()
}

func (p *FramePool) IsClosed(ctx context.Context) bool {
	return xsync.DoR1(ctx, &p.locker, func() bool {
		return p.closed
	})
}

// OnFrameArrived sets the handler invoked after each accepted picture.
// Only one handler is kept: the next call replaces the previous one.
func (p *FramePool) OnFrameArrived(handler func(context.Context)) {
	ctx := context.TODO()
	p.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		p.handler = handler
	})
}

// TryGetNextFrame dequeues the oldest frame.
func (p *FramePool) TryGetNextFrame(ctx context.Context) (*Frame, error) {
	return xsync.DoR2(ctx, &p.locker, func() (*Frame, error) {
		if p.closed {
			return nil, ErrPoolClosed{}
		}
		if len(p.queue) == 0 {
			return nil, ErrNoFrameAvailable{}
		}
		f := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		return f, nil
	})
}

// CreateCaptureSession creates a session that feeds the pool with
// pictures of the target once started.
func (p *FramePool) CreateCaptureSession(
	ctx context.Context,
	target capturetarget.Target,
) (*Session, error) {
	logger.Debugf(ctx, "CreateCaptureSession(ctx, %s)", target)
	defer logger.Debugf(ctx, "/CreateCaptureSession(ctx, %s)", target)
	return xsync.DoR2(ctx, &p.locker, func() (*Session, error) {
		if p.closed {
			return nil, ErrPoolClosed{}
		}
		s := newSession(p, target)
		p.sessions = append(p.sessions, s)
		return s, nil
	})
}

// deliver is the callback passed to the frame source loop.
func (p *FramePool) deliver(
	ctx context.Context,
	bitmap *gpu.Bitmap,
) {
	var handler func(context.Context)
	accepted := xsync.DoR1(ctx, &p.locker, func() bool {
		if p.closed {
			logger.Tracef(ctx, "the pool is closed, dropping the picture")
			return false
		}
		if len(p.free) == 0 {
			logger.Tracef(ctx, "no free buffers, dropping the picture")
			return false
		}
		t := p.free[len(p.free)-1]
		if err := p.device.UpdateSubresource(ctx, t, bitmap); err != nil {
			logger.Errorf(ctx, "unable to upload the picture into %s: %v", t, err)
			return false
		}
		p.free = p.free[:len(p.free)-1]
		p.queue = append(p.queue, &Frame{
			pool:    p,
			texture: t,
			ContentSize: image.Point{
				X: min(bitmap.Width, p.size.X),
				Y: min(bitmap.Height, p.size.Y),
			},
			CapturedAt: time.Now(),
		})
		handler = p.handler
		return true
	})
	if !accepted {
		p.droppedCount.Add(1)
		return
	}
	p.deliveredCount.Add(1)
	if handler != nil {
		handler(ctx)
	}
}

func (p *FramePool) returnFrame(
	ctx context.Context,
	f *Frame,
) error {
	var toRelease *gpu.Texture
	p.locker.Do(ctx, func() {
		if f.closed {
			return
		}
		f.closed = true
		if p.closed {
			toRelease = f.texture
			return
		}
		p.free = append(p.free, f.texture)
	})
	if toRelease == nil {
		return nil
	}
	return p.device.ReleaseTexture(ctx, toRelease)
}

// Close stops all the sessions of the pool and releases the buffers
// that are not borrowed by a frame (a borrowed buffer is released
// when its frame is closed). Close does not wait for the source loops
// to exit, so it may be called from the frame-arrived handler.
//
// Closing a closed pool is a no-op.
func (p *FramePool) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()

	var (
		sessions  []*Session
		toRelease []*gpu.Texture
	)
	p.locker.Do(ctx, func() {
		if p.closed {
			return
		}
		p.closed = true
		sessions = p.sessions
		p.sessions = nil
		toRelease = p.free
		p.free = nil
		for _, f := range p.queue {
			f.closed = true
			toRelease = append(toRelease, f.texture)
		}
		p.queue = nil
		p.handler = nil
	})

	var mErr *multierror.Error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close %s: %w", s, err))
		}
	}
	for _, t := range toRelease {
		if err := p.device.ReleaseTexture(ctx, t); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to release %s: %w", t, err))
		}
	}
	return mErr.ErrorOrNil()
}
