package framepool

import (
	"context"
	"image"
	"time"

	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// FrameSource produces pictures of a capture target.
type FrameSource interface {
	// TargetSize returns the current size of the target.
	TargetSize(ctx context.Context, target capturetarget.Target) (image.Point, error)

	// Loop produces pictures of the target and passes them to the callback
	// (on the goroutine of the loop) until ctx is cancelled.
	Loop(
		ctx context.Context,
		interval time.Duration,
		target capturetarget.Target,
		callback func(context.Context, *gpu.Bitmap),
	) error
}

// Device is the subset of the graphics device used by the pool.
type Device interface {
	CreateTexture(ctx context.Context, desc gpu.TextureDesc, initial *gpu.Bitmap) (*gpu.Texture, error)
	UpdateSubresource(ctx context.Context, dst *gpu.Texture, src *gpu.Bitmap) error
	ReleaseTexture(ctx context.Context, t *gpu.Texture) error
}
