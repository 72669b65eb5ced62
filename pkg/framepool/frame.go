package framepool

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// Frame is a pool buffer borrowed by a consumer. It has to be closed
// as soon as the consumer is done with it, so the buffer could be reused.
type Frame struct {
	pool    *FramePool
	texture *gpu.Texture
	closed  bool // guarded by pool.locker

	// ContentSize is the size of the picture written into the buffer;
	// it may be smaller than the buffer if the target shrank.
	ContentSize image.Point
	CapturedAt  time.Time
}

func (f *Frame) Surface() *gpu.Texture {
	return f.texture
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame<%s, content:%v, at:%s>", f.texture, f.ContentSize, f.CapturedAt.Format(time.RFC3339Nano))
}

// Close returns the buffer to the pool (or releases it if the pool
// is already closed). Closing a closed frame is a no-op.
func (f *Frame) Close(ctx context.Context) error {
	return f.pool.returnFrame(ctx, f)
}
