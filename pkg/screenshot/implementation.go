package screenshot

import (
	"context"
	"fmt"
	"image"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// Implementation gives access to the physical displays.
type Implementation struct{}

var _ capturetarget.DisplayEnumerator = Implementation{}

func (Implementation) Displays(ctx context.Context) ([]capturetarget.Target, error) {
	return displayTargets(ctx, NumActiveDisplays(), DisplayBounds), nil
}

func displayTargets(
	ctx context.Context,
	count uint,
	boundsFn func(uint) image.Rectangle,
) []capturetarget.Target {
	result := make([]capturetarget.Target, 0, count)
	for idx := uint(0); idx < count; idx++ {
		bounds := boundsFn(idx)
		if bounds.Empty() {
			logger.Warnf(ctx, "display #%d has empty bounds %v, skipping", idx, bounds)
			continue
		}
		name := fmt.Sprintf("display %d", len(result)+1)
		if len(result) == 0 {
			name += " (primary)"
		}
		result = append(result, capturetarget.Target{
			Kind:   capturetarget.KindDisplay,
			ID:     uint64(idx),
			Name:   name,
			Bounds: bounds,
		})
	}
	return result
}

func (Implementation) Bounds(
	_ context.Context,
	target capturetarget.Target,
) (image.Rectangle, error) {
	if target.Kind != capturetarget.KindDisplay {
		return image.Rectangle{}, fmt.Errorf("%s is not a display", target)
	}
	if n := NumActiveDisplays(); target.ID >= uint64(n) {
		return image.Rectangle{}, fmt.Errorf("%s is not active anymore: there are %d active displays", target, n)
	}
	return DisplayBounds(uint(target.ID)), nil
}

func (impl Implementation) Screenshot(
	ctx context.Context,
	target capturetarget.Target,
) (*gpu.Bitmap, error) {
	bounds, err := impl.Bounds(ctx, target)
	if err != nil {
		return nil, err
	}
	img, err := Screenshot(Config{Bounds: bounds})
	if err != nil {
		return nil, err
	}
	return gpu.NewBitmapFromRGBA(img), nil
}
