package capturetarget

import (
	"fmt"
	"strings"
)

// Selection is the user's choice of a target. At most one criterion
// may be set; an empty Selection means the primary display.
type Selection struct {
	WindowQuery string

	// DisplayIndex is 1-based. It is considered set if it is non-zero
	// or if DisplaySet is true, so that an explicitly requested
	// index 0 is reported as invalid instead of meaning "not set".
	DisplayIndex int
	DisplaySet   bool

	Primary bool
}

func (s Selection) hasDisplay() bool {
	return s.DisplaySet || s.DisplayIndex != 0
}

func (s Selection) Validate() error {
	var set []string
	if s.WindowQuery != "" {
		set = append(set, "window")
	}
	if s.hasDisplay() {
		set = append(set, "display")
	}
	if s.Primary {
		set = append(set, "primary")
	}
	if len(set) > 1 {
		return ErrInvalidSelection{Reason: fmt.Sprintf("mutually exclusive criteria are set: %s", strings.Join(set, ", "))}
	}
	if s.DisplayIndex < 0 {
		return ErrInvalidDisplayIndex{Index: s.DisplayIndex}
	}
	return nil
}

func (s Selection) String() string {
	switch {
	case s.WindowQuery != "":
		return fmt.Sprintf("window %q", s.WindowQuery)
	case s.hasDisplay():
		return fmt.Sprintf("display #%d", s.DisplayIndex)
	default:
		return "primary display"
	}
}
