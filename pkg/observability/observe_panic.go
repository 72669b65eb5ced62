package observability

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// PanicFlushTimeout is how long a re-panic is delayed to let
// the error reports be delivered.
var PanicFlushTimeout = time.Second

func PanicIfNotNil(ctx context.Context, r any) {
	if !ReportPanicIfNotNil(ctx, r) {
		return
	}
	time.Sleep(PanicFlushTimeout)
	panic(fmt.Sprintf("%#+v", r))
}

// ReportPanicIfNotNil logs and reports the recovered value r;
// it returns false if there was no panic.
func ReportPanicIfNotNil(ctx context.Context, r any) bool {
	if r == nil {
		return false
	}
	logger.FromCtx(ctx).
		WithField("error_event_exception_stack_trace", string(debug.Stack())).
		Errorf("got panic: %v", r)
	errmon.ObserveRecoverCtx(ctx, r)
	belt.Flush(ctx)
	return true
}
