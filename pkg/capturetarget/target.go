package capturetarget

import (
	"fmt"
	"image"
)

type Kind int

const (
	KindUndefined = Kind(iota)
	KindDisplay
	KindWindow
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindDisplay:
		return "display"
	case KindWindow:
		return "window"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Target is a capturable surface producer: a display or a top-level window.
type Target struct {
	Kind Kind

	// ID is a platform-specific identifier: the display index for displays,
	// the window ID (X11) or the window handle value (Windows) for windows.
	ID uint64

	Name        string
	ProcessID   int32
	ProcessName string

	// Bounds is the position and size of the target in the virtual
	// screen at the moment of enumeration.
	Bounds image.Rectangle
}

func (t Target) Size() image.Point {
	return t.Bounds.Size()
}

func (t Target) String() string {
	switch t.Kind {
	case KindDisplay:
		return fmt.Sprintf("display#%d%v", t.ID, t.Bounds)
	case KindWindow:
		return fmt.Sprintf("window#0x%x<%q pid:%d>", t.ID, t.Name, t.ProcessID)
	default:
		return fmt.Sprintf("%s#%d", t.Kind, t.ID)
	}
}
