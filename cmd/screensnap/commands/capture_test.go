package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/config"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/snapshot"
)

type staticDisplays []capturetarget.Target

func (s staticDisplays) Displays(context.Context) ([]capturetarget.Target, error) {
	return s, nil
}

type staticWindows []capturetarget.Target

func (s staticWindows) Windows(context.Context) ([]capturetarget.Target, error) {
	return s, nil
}

// spySource paints every pixel with a color derived from the target ID.
type spySource struct {
	loops   atomic.Int32
	targets chan capturetarget.Target
}

func newSpySource() *spySource {
	return &spySource{
		targets: make(chan capturetarget.Target, 10),
	}
}

func (s *spySource) TargetSize(_ context.Context, target capturetarget.Target) (image.Point, error) {
	return target.Size(), nil
}

func (s *spySource) Loop(
	ctx context.Context,
	_ time.Duration,
	target capturetarget.Target,
	callback func(context.Context, *gpu.Bitmap),
) error {
	s.loops.Add(1)
	s.targets <- target

	img := image.NewRGBA(image.Rectangle{Max: target.Size()})
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = uint8(target.ID)
		img.Pix[i+1] = 0x20
		img.Pix[i+2] = 0x30
		img.Pix[i+3] = 0xff
	}
	callback(ctx, gpu.NewBitmapFromRGBA(img))
	<-ctx.Done()
	return ctx.Err()
}

type capturerFixture struct {
	capturer     *Capturer
	source       *spySource
	devices      atomic.Int32
	lastDevice   atomic.Pointer[gpu.Device]
	promptOutput *strings.Builder
}

func newCapturerFixture(t *testing.T, promptInput string) *capturerFixture {
	f := &capturerFixture{
		source:       newSpySource(),
		promptOutput: &strings.Builder{},
	}
	f.capturer = &Capturer{
		Resolver: &capturetarget.Resolver{
			Displays: staticDisplays{
				{Kind: capturetarget.KindDisplay, ID: 0, Name: "display 1 (primary)", Bounds: image.Rect(0, 0, 64, 32)},
				{Kind: capturetarget.KindDisplay, ID: 1, Name: "display 2", Bounds: image.Rect(64, 0, 96, 16)},
			},
			Windows: staticWindows{
				{Kind: capturetarget.KindWindow, ID: 101, Name: "Terminal: ~/src", ProcessID: 11, ProcessName: "xterm", Bounds: image.Rect(0, 0, 20, 10)},
				{Kind: capturetarget.KindWindow, ID: 102, Name: "Editor: notes.txt", ProcessID: 12, ProcessName: "editor", Bounds: image.Rect(5, 5, 45, 35)},
				{Kind: capturetarget.KindWindow, ID: 103, Name: "Editor: todo.txt", ProcessID: 13, ProcessName: "editor", Bounds: image.Rect(0, 0, 30, 20)},
			},
		},
		Source: f.source,
		NewDevice: func(ctx context.Context) (*gpu.Device, error) {
			f.devices.Add(1)
			d, err := gpu.New(ctx)
			f.lastDevice.Store(d)
			return d, err
		},
		Timeout: time.Minute,
		Prompt:  NewPrompt(strings.NewReader(promptInput), f.promptOutput),
		Metrics: NewMetrics(),
	}
	return f
}

func (f *capturerFixture) capturesTotal(t *testing.T, result string) float64 {
	var m dto.Metric
	require.NoError(t, f.capturer.Metrics.Captures.WithLabelValues(result).Write(&m))
	return m.GetCounter().GetValue()
}

func readPNG(t *testing.T, path string) image.Image {
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	return img
}

func TestCaptureNoMatchingWindow(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	outputPath := filepath.Join(t.TempDir(), "out.png")

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{WindowQuery: "browser"}, outputPath)
	require.Error(t, err)
	require.ErrorIs(t, err, capturetarget.ErrTargetResolution{})
	require.ErrorAs(t, err, &capturetarget.ErrNoMatchingWindow{})

	assert.NoFileExists(t, outputPath)
	assert.Zero(t, f.source.loops.Load())
	assert.Zero(t, f.devices.Load())
	assert.Empty(t, f.promptOutput.String())
	assert.Equal(t, float64(1), f.capturesTotal(t, resultResolution))
}

func TestCaptureInvalidDisplayIndex(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	outputPath := filepath.Join(t.TempDir(), "out.png")

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{DisplayIndex: 3}, outputPath)
	require.ErrorIs(t, err, capturetarget.ErrTargetResolution{})
	var indexErr capturetarget.ErrInvalidDisplayIndex
	require.ErrorAs(t, err, &indexErr)
	assert.Equal(t, 3, indexErr.Index)
	assert.Equal(t, 2, indexErr.Count)

	assert.NoFileExists(t, outputPath)
	assert.Zero(t, f.source.loops.Load())
	assert.Zero(t, f.devices.Load())
}

func TestCaptureDisplay(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	outputPath := filepath.Join(t.TempDir(), "display.png")

	res, err := f.capturer.Capture(ctx, capturetarget.Selection{DisplayIndex: 2}, outputPath)
	require.NoError(t, err)
	assert.Equal(t, outputPath, res.Path)
	assert.Equal(t, image.Pt(32, 16), res.Size)
	assert.Positive(t, res.Bytes)

	target := <-f.source.targets
	assert.Equal(t, uint64(1), target.ID)

	img := readPNG(t, outputPath)
	require.Equal(t, image.Pt(32, 16), img.Bounds().Size())
	r, g, b, a := img.At(7, 7).RGBA()
	assert.Equal(t, [4]uint32{0x0101, 0x2020, 0x3030, 0xffff}, [4]uint32{r, g, b, a})

	assert.Equal(t, float64(1), f.capturesTotal(t, resultSuccess))
	assert.Zero(t, f.lastDevice.Load().LiveTextures())
}

func TestCaptureAmbiguousWindowPrompt(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "nope\n0\n2\n")
	outputPath := filepath.Join(t.TempDir(), "window.png")

	res, err := f.capturer.Capture(ctx, capturetarget.Selection{WindowQuery: "editor"}, outputPath)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(30, 20), res.Size)

	target := <-f.source.targets
	assert.Equal(t, uint64(103), target.ID)

	prompt := f.promptOutput.String()
	assert.Contains(t, prompt, "Editor: notes.txt")
	assert.Contains(t, prompt, "Editor: todo.txt")
	assert.NotContains(t, prompt, "Terminal")
	assert.Equal(t, 3, strings.Count(prompt, "Choose a window [1-2]"))
}

func TestCaptureAmbiguousWindowQuit(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "q\n")
	outputPath := filepath.Join(t.TempDir(), "window.png")

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{WindowQuery: "editor"}, outputPath)
	require.ErrorAs(t, err, &ErrSelectionAborted{})
	require.ErrorIs(t, err, capturetarget.ErrTargetResolution{})
	assert.NoFileExists(t, outputPath)
	assert.Zero(t, f.source.loops.Load())
	assert.Zero(t, f.devices.Load())
}

func TestCaptureWithoutPrompt(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	f.capturer.Prompt = nil

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{WindowQuery: "editor"}, filepath.Join(t.TempDir(), "x.png"))
	var ambiguous capturetarget.ErrAmbiguousWindow
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)
}

func TestCaptureTimeout(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	f.capturer.Source = &silentSource{}
	f.capturer.Timeout = 50 * time.Millisecond
	outputPath := filepath.Join(t.TempDir(), "out.png")

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{}, outputPath)
	require.ErrorAs(t, err, &snapshot.ErrCaptureTimeout{})
	assert.NoFileExists(t, outputPath)
	assert.Equal(t, float64(1), f.capturesTotal(t, resultTimeout))
	assert.Zero(t, f.lastDevice.Load().LiveTextures())
}

func TestCaptureUnknownFormat(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	outputPath := filepath.Join(t.TempDir(), "out.xyz")

	_, err := f.capturer.Capture(ctx, capturetarget.Selection{Primary: true}, outputPath)
	require.Error(t, err)
	assert.NoFileExists(t, outputPath)
	assert.Equal(t, float64(1), f.capturesTotal(t, resultEncoding))
	assert.Zero(t, f.lastDevice.Load().LiveTextures())
}

func TestMetricsWriteToTextfile(t *testing.T) {
	ctx := context.Background()
	f := newCapturerFixture(t, "")
	_, err := f.capturer.Capture(ctx, capturetarget.Selection{}, filepath.Join(t.TempDir(), "out.png"))
	require.NoError(t, err)

	metricsPath := filepath.Join(t.TempDir(), "screensnap.prom")
	require.NoError(t, f.capturer.Metrics.WriteToTextfile(ctx, metricsPath))
	b, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `screensnap_captures_total{result="success"} 1`)
	assert.Contains(t, string(b), "screensnap_output_bytes")
}

type silentSource struct{}

func (silentSource) TargetSize(_ context.Context, target capturetarget.Target) (image.Point, error) {
	return target.Size(), nil
}

func (silentSource) Loop(
	ctx context.Context,
	_ time.Duration,
	_ capturetarget.Target,
	_ func(context.Context, *gpu.Bitmap),
) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRootExplicitDisplayZero(t *testing.T) {
	f := newCapturerFixture(t, "")
	capturerFactory = func(context.Context, config.Config, io.Reader, io.Writer) *Capturer {
		return f.capturer
	}
	t.Cleanup(func() {
		capturerFactory = newCapturer
		Config = config.DefaultConfig()
		Root.SetArgs(nil)
		Root.SetOut(nil)
	})

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.png")
	metricsPath := filepath.Join(dir, "screensnap.prom")
	var stdout bytes.Buffer
	Root.SetOut(&stdout)
	Root.SetArgs([]string{
		"--" + flagConfigPath, filepath.Join(dir, "missing.yaml"),
		"--" + flagDisplay, "0",
		"--" + flagOutput, outputPath,
		"--" + flagMetricsFile, metricsPath,
	})

	err := Execute(context.Background())
	require.ErrorIs(t, err, capturetarget.ErrTargetResolution{})
	var indexErr capturetarget.ErrInvalidDisplayIndex
	require.ErrorAs(t, err, &indexErr)
	assert.Equal(t, 0, indexErr.Index)
	assert.Equal(t, 2, indexErr.Count)

	assert.Zero(t, f.devices.Load())
	assert.Zero(t, f.source.loops.Load())
	assert.NoFileExists(t, outputPath)
	assert.Empty(t, stdout.String())
	assert.Equal(t, float64(1), f.capturesTotal(t, resultResolution))

	b, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `screensnap_captures_total{result="resolution_error"} 1`)
}

func TestShouldReport(t *testing.T) {
	assert.False(t, shouldReport(nil))
	assert.False(t, shouldReport(capturetarget.ErrNoMatchingWindow{Query: "x"}))
	assert.False(t, shouldReport(fmt.Errorf("wrapped: %w", capturetarget.ErrInvalidDisplayIndex{Index: 0, Count: 1})))
	assert.False(t, shouldReport(ErrSelectionAborted{Reason: "end of input"}))
	assert.True(t, shouldReport(snapshot.ErrCaptureTimeout{}))
	assert.True(t, shouldReport(fmt.Errorf("unable to save")))
}
