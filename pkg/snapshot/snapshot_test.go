package snapshot

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/framepool"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

type fakeSource struct {
	size      image.Point
	grabSize  image.Point
	running   atomic.Int32
	sizeErr   error
	gate      chan struct{}
	never     bool
	started   chan struct{}
	startOnce sync.Once
	delivered atomic.Int32
	loopsDone sync.WaitGroup
}

func newFakeSource(size image.Point) *fakeSource {
	return &fakeSource{
		size:    size,
		started: make(chan struct{}),
	}
}

func (s *fakeSource) TargetSize(context.Context, capturetarget.Target) (image.Point, error) {
	return s.size, s.sizeErr
}

func (s *fakeSource) Loop(
	ctx context.Context,
	interval time.Duration,
	_ capturetarget.Target,
	callback func(context.Context, *gpu.Bitmap),
) error {
	s.loopsDone.Add(1)
	defer s.loopsDone.Done()
	s.running.Add(1)
	defer s.running.Add(-1)
	s.startOnce.Do(func() { close(s.started) })
	if s.never {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.gate != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.gate:
		}
	}

	picSize := s.size
	if s.grabSize != (image.Point{}) {
		picSize = s.grabSize
	}
	img := image.NewRGBA(image.Rectangle{Max: picSize})
	for i := range img.Pix {
		img.Pix[i] = 0x7f
	}
	bitmap := gpu.NewBitmapFromRGBA(img)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		callback(ctx, bitmap)
		s.delivered.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

type faultyDevice struct {
	*gpu.Device
	stagingErr error
}

func (d *faultyDevice) CreateStagingTexture(ctx context.Context, src *gpu.Texture) (*gpu.Texture, error) {
	if d.stagingErr != nil {
		return nil, d.stagingErr
	}
	return d.Device.CreateStagingTexture(ctx, src)
}

// observedPool remembers the frame-arrived handler, so a test could
// trigger notifications on its own.
type observedPool struct {
	FramePool
	handler atomic.Pointer[func(context.Context)]
}

func (p *observedPool) OnFrameArrived(handler func(context.Context)) {
	p.handler.Store(&handler)
	p.FramePool.OnFrameArrived(handler)
}

func (p *observedPool) notify(ctx context.Context) {
	(*p.handler.Load())(ctx)
}

func newDevice(t *testing.T) *gpu.Device {
	d, err := gpu.New(context.Background())
	require.NoError(t, err)
	return d
}

func displayTarget(size image.Point) capturetarget.Target {
	return capturetarget.Target{
		Kind:   capturetarget.KindDisplay,
		Bounds: image.Rectangle{Max: size},
	}
}

func newTestSnapshotter(src framepool.FrameSource) *Snapshotter {
	s := New(src)
	s.FrameInterval = time.Millisecond
	return s
}

func TestTakeFullHD(t *testing.T) {
	ctx := context.Background()
	size := image.Pt(1920, 1080)
	d := newDevice(t)
	src := newFakeSource(size)

	surface, err := newTestSnapshotter(src).Take(ctx, d, displayTarget(size))
	require.NoError(t, err)
	require.NotNil(t, surface)
	require.Equal(t, size, surface.Size())
	require.Equal(t, gpu.PixelFormatB8G8R8A8UNorm, surface.Format())

	desc := surface.Texture().Desc()
	require.Equal(t, gpu.UsageStaging, desc.Usage)
	require.Zero(t, desc.BindFlags)
	require.Equal(t, gpu.CPUAccessRead, desc.CPUAccess)

	// only the returned surface is alive: the pool buffer is released
	require.Equal(t, 1, d.LiveTextures())

	m, err := d.MapForRead(ctx, surface.Texture())
	require.NoError(t, err)
	require.Equal(t, []byte{0x7f, 0x7f, 0x7f, 0x7f}, m.Data[:4])
	require.NoError(t, d.Unmap(ctx, surface.Texture()))

	require.NoError(t, surface.Release(ctx))
	require.Zero(t, d.LiveTextures())
	src.loopsDone.Wait()
}

func TestTakeUsesCurrentTargetSize(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)
	src := newFakeSource(image.Pt(64, 48))

	// the bounds of the enumeration are stale; the current size wins
	surface, err := newTestSnapshotter(src).Take(ctx, d, displayTarget(image.Pt(32, 32)))
	require.NoError(t, err)
	require.Equal(t, image.Pt(64, 48), surface.Size())
	require.NoError(t, surface.Release(ctx))
}

func TestTakeTargetShrank(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)
	src := newFakeSource(image.Pt(64, 48))
	src.grabSize = image.Pt(40, 30)

	surface, err := newTestSnapshotter(src).Take(ctx, d, displayTarget(src.size))
	require.NoError(t, err)
	require.Equal(t, image.Pt(40, 30), surface.Size())
	require.Equal(t, image.Pt(64, 48), surface.Texture().Size())
	require.NoError(t, surface.Release(ctx))
	src.loopsDone.Wait()
}

func TestTakeStagingFailure(t *testing.T) {
	ctx := context.Background()
	d := &faultyDevice{Device: newDevice(t), stagingErr: fmt.Errorf("injected")}
	src := newFakeSource(image.Pt(16, 16))

	surface, err := newTestSnapshotter(src).Take(ctx, d, displayTarget(src.size))
	require.Error(t, err)
	require.Nil(t, surface)
	require.ErrorContains(t, err, "injected")
	require.Zero(t, d.LiveTextures())
	src.loopsDone.Wait()
}

func TestTakeTargetSizeFailure(t *testing.T) {
	d := newDevice(t)
	src := newFakeSource(image.Pt(16, 16))
	src.sizeErr = fmt.Errorf("the window is gone")

	_, err := newTestSnapshotter(src).Take(context.Background(), d, displayTarget(src.size))
	require.ErrorContains(t, err, "the window is gone")

	src.sizeErr = nil
	src.size = image.Pt(0, 10)
	_, err = newTestSnapshotter(src).Take(context.Background(), d, displayTarget(src.size))
	require.ErrorAs(t, err, &ErrInvalidTargetSize{})
	require.Zero(t, d.LiveTextures())
}

func TestTakePoolCreationFailure(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx, gpu.OptionMemoryBudget(1))
	require.NoError(t, err)

	_, err = newTestSnapshotter(newFakeSource(image.Pt(16, 16))).Take(ctx, d, displayTarget(image.Pt(16, 16)))
	require.ErrorAs(t, err, &gpu.ErrResourceAllocation{})
	require.Zero(t, d.LiveTextures())
}

func TestTakeTimeout(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)
	src := newFakeSource(image.Pt(8, 8))
	src.never = true

	s := newTestSnapshotter(src)
	s.Timeout = 50 * time.Millisecond
	startedAt := time.Now()
	surface, err := s.Take(ctx, d, displayTarget(src.size))
	require.Nil(t, surface)
	require.ErrorAs(t, err, &ErrCaptureTimeout{})
	require.GreaterOrEqual(t, time.Since(startedAt), s.Timeout)
	require.Zero(t, src.running.Load(), "the frame source must be stopped when Take returns")

	// the session is closed, so the loop exits; the pool is closed, so buffers are released
	<-src.started
	src.loopsDone.Wait()
	require.Zero(t, d.LiveTextures())
}

func TestTakeCancel(t *testing.T) {
	d := newDevice(t)
	src := newFakeSource(image.Pt(8, 8))
	src.never = true

	ctx, cancelFn := context.WithCancel(context.Background())
	go func() {
		<-src.started
		cancelFn()
	}()

	s := newTestSnapshotter(src)
	s.Timeout = 0
	_, err := s.Take(ctx, d, displayTarget(src.size))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, src.running.Load(), "the frame source must be stopped when Take returns")
	src.loopsDone.Wait()
	require.Zero(t, d.LiveTextures())
}

func TestTakeSpuriousNotification(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)
	src := newFakeSource(image.Pt(8, 8))
	src.gate = make(chan struct{})

	pool := &observedPool{}
	s := newTestSnapshotter(src)
	s.NewFramePool = func(
		ctx context.Context,
		device GraphicsDevice,
		source framepool.FrameSource,
		size image.Point,
		opts ...framepool.Option,
	) (FramePool, error) {
		inner, err := NewFramePool(ctx, device, source, size, opts...)
		if err != nil {
			return nil, err
		}
		pool.FramePool = inner
		return pool, nil
	}

	type takeResult struct {
		surface *gpu.Surface
		err     error
	}
	resultCh := make(chan takeResult, 1)
	go func() {
		surface, err := s.Take(ctx, d, displayTarget(src.size))
		resultCh <- takeResult{surface, err}
	}()

	<-src.started
	pool.notify(ctx)

	select {
	case r := <-resultCh:
		t.Fatalf("Take returned on an empty notification: %v %v", r.surface, r.err)
	case <-time.After(50 * time.Millisecond):
	}

	close(src.gate)
	r := <-resultCh
	require.NoError(t, r.err)
	require.Equal(t, src.size, r.surface.Size())

	// notifications after the completion are unobservable
	pool.notify(ctx)
	pool.notify(ctx)
	src.loopsDone.Wait()
	assert.Equal(t, 1, d.LiveTextures())
	require.NoError(t, r.surface.Release(ctx))
}

func TestTakeSequential(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t)
	src := newFakeSource(image.Pt(4, 4))
	s := newTestSnapshotter(src)

	for i := 0; i < 10; i++ {
		surface, err := s.Take(ctx, d, displayTarget(src.size))
		require.NoError(t, err)
		require.NoError(t, surface.Release(ctx))
	}
	src.loopsDone.Wait()
	require.Zero(t, d.LiveTextures())
}
