package capturetarget

import (
	"context"
	"fmt"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"golang.org/x/text/cases"
)

// DisplayEnumerator lists the active displays; the primary display goes first.
type DisplayEnumerator interface {
	Displays(ctx context.Context) ([]Target, error)
}

// WindowEnumerator lists the top-level windows.
type WindowEnumerator interface {
	Windows(ctx context.Context) ([]Target, error)
}

type Resolver struct {
	Displays DisplayEnumerator
	Windows  WindowEnumerator

	// CaseSensitive disables Unicode case folding in window title matching.
	CaseSensitive bool
}

func (r *Resolver) displays(ctx context.Context) ([]Target, error) {
	if r.Displays == nil {
		return nil, fmt.Errorf("display enumeration is not supported")
	}
	displays, err := r.Displays.Displays(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to enumerate displays: %w", err)
	}
	return displays, nil
}

// Primary returns the primary display.
func (r *Resolver) Primary(ctx context.Context) (Target, error) {
	displays, err := r.displays(ctx)
	if err != nil {
		return Target{}, err
	}
	if len(displays) == 0 {
		return Target{}, ErrInvalidDisplayIndex{Index: 1, Count: 0}
	}
	return displays[0], nil
}

// Display returns the display by its 1-based index.
func (r *Resolver) Display(ctx context.Context, index int) (Target, error) {
	displays, err := r.displays(ctx)
	if err != nil {
		return Target{}, err
	}
	if index < 1 || index > len(displays) {
		return Target{}, ErrInvalidDisplayIndex{Index: index, Count: len(displays)}
	}
	return displays[index-1], nil
}

// MatchWindows returns the windows whose titles contain the query,
// in the enumeration order. Windows without a title never match.
func (r *Resolver) MatchWindows(ctx context.Context, query string) ([]Target, error) {
	if r.Windows == nil {
		return nil, fmt.Errorf("window enumeration is not supported")
	}
	windows, err := r.Windows.Windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to enumerate windows: %w", err)
	}

	match := r.matcher(query)
	var result []Target
	for _, w := range windows {
		if w.Name == "" {
			continue
		}
		if match(w.Name) {
			result = append(result, w)
		}
	}
	logger.Debugf(ctx, "%d of %d windows match %q", len(result), len(windows), query)
	return result, nil
}

func (r *Resolver) matcher(query string) func(string) bool {
	if r.CaseSensitive {
		return func(title string) bool {
			return strings.Contains(title, query)
		}
	}
	folder := cases.Fold()
	foldedQuery := folder.String(query)
	return func(title string) bool {
		return strings.Contains(folder.String(title), foldedQuery)
	}
}

// Window returns the only window matching the query.
func (r *Resolver) Window(ctx context.Context, query string) (Target, error) {
	matches, err := r.MatchWindows(ctx, query)
	if err != nil {
		return Target{}, err
	}
	switch len(matches) {
	case 0:
		return Target{}, ErrNoMatchingWindow{Query: query}
	case 1:
		return matches[0], nil
	default:
		return Target{}, ErrAmbiguousWindow{Query: query, Candidates: matches}
	}
}

func (r *Resolver) Resolve(ctx context.Context, sel Selection) (_ret Target, _err error) {
	logger.Debugf(ctx, "Resolve(ctx, %s)", sel)
	defer func() { logger.Debugf(ctx, "/Resolve(ctx, %s): %s %v", sel, _ret, _err) }()

	if err := sel.Validate(); err != nil {
		return Target{}, err
	}
	switch {
	case sel.WindowQuery != "":
		return r.Window(ctx, sel.WindowQuery)
	case sel.hasDisplay():
		return r.Display(ctx, sel.DisplayIndex)
	default:
		return r.Primary(ctx)
	}
}
