package observability

import (
	"context"
	"fmt"
)

// Call runs fn and re-panics (after reporting) if fn panics.
func Call(ctx context.Context, fn func()) {
	defer func() { PanicIfNotNil(ctx, recover()) }()
	fn()
}

// CallSafe runs fn and only reports if fn panics.
func CallSafe(ctx context.Context, fn func()) {
	defer func() { ReportPanicIfNotNil(ctx, recover()) }()
	fn()
}

// CallE runs fn and converts its panic (if any) into an error.
func CallE(ctx context.Context, fn func() error) (_err error) {
	defer func() {
		r := recover()
		if ReportPanicIfNotNil(ctx, r) {
			_err = fmt.Errorf("got panic: %v", r)
		}
	}()
	return fn()
}

func Go(ctx context.Context, fn func()) {
	go Call(ctx, fn)
}

func GoSafe(ctx context.Context, fn func()) {
	go CallSafe(ctx, fn)
}
