package snapshot

import (
	"context"
	"image"

	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/framepool"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// GraphicsDevice is the subset of *gpu.Device used for capturing.
type GraphicsDevice interface {
	framepool.Device
	CreateStagingTexture(ctx context.Context, src *gpu.Texture) (*gpu.Texture, error)
	CopyResource(ctx context.Context, dst, src *gpu.Texture) error
}

var _ GraphicsDevice = (*gpu.Device)(nil)

type FramePool interface {
	OnFrameArrived(handler func(context.Context))
	TryGetNextFrame(ctx context.Context) (*framepool.Frame, error)
	CreateCaptureSession(ctx context.Context, target capturetarget.Target) (CaptureSession, error)
	Close(ctx context.Context) error
}

type CaptureSession interface {
	StartCapture(ctx context.Context) error
	Close(ctx context.Context) error

	// Done is closed when the session can no longer deliver pictures.
	Done() <-chan struct{}
}

// FramePoolFactory creates a single-buffer pool of the given size.
type FramePoolFactory func(
	ctx context.Context,
	device GraphicsDevice,
	source framepool.FrameSource,
	size image.Point,
	opts ...framepool.Option,
) (FramePool, error)

type framePool struct {
	*framepool.FramePool
}

var _ FramePool = framePool{}

func (p framePool) CreateCaptureSession(
	ctx context.Context,
	target capturetarget.Target,
) (CaptureSession, error) {
	s, err := p.FramePool.CreateCaptureSession(ctx, target)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewFramePool is the default FramePoolFactory.
func NewFramePool(
	ctx context.Context,
	device GraphicsDevice,
	source framepool.FrameSource,
	size image.Point,
	opts ...framepool.Option,
) (FramePool, error) {
	p, err := framepool.New(ctx, device, source, gpu.PixelFormatB8G8R8A8UNorm, 1, size, opts...)
	if err != nil {
		return nil, err
	}
	return framePool{FramePool: p}, nil
}
