package observability

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"github.com/DataDog/gostackparse"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/field"
	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmontypes "github.com/facebookincubator/go-belt/tool/experimental/errmon/types"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/adapter"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
)

const maxStackBufferSize = 10 << 20

// goroutines returns the parsed stacks of all the goroutines and
// the ID of the current one.
func goroutines() ([]errmontypes.Goroutine, int) {
	stackBuffer := make([]byte, min(65536*runtime.NumGoroutine(), maxStackBufferSize))

	n := runtime.Stack(stackBuffer, true)
	all, _ := gostackparse.Parse(bytes.NewReader(stackBuffer[:n]))
	result := make([]errmontypes.Goroutine, 0, len(all))
	for _, g := range all {
		result = append(result, *g)
	}

	n = runtime.Stack(stackBuffer, false)
	current, _ := gostackparse.Parse(bytes.NewReader(stackBuffer[:n]))
	if len(current) != 1 {
		return result, 0
	}
	return result, current[0].ID
}

// entryCatcher is a logger emitter that just remembers the last entry;
// it is used to build an entry the way the logger would build it.
type entryCatcher struct {
	LastEntry *loggertypes.Entry
}

var _ loggertypes.Emitter = (*entryCatcher)(nil)

func (e *entryCatcher) Emit(entry *loggertypes.Entry) {
	e.LastEntry = entry
}

func (e *entryCatcher) Flush() {}

// ErrorMonitorLoggerHook forwards log entries of level MinLevel and more
// severe to the error monitor (asynchronously).
type ErrorMonitorLoggerHook struct {
	ErrorMonitor errmontypes.ErrorMonitor
	MinLevel     loggertypes.Level
	SendChan     chan ErrorMonitorMessage
}

var _ loggertypes.PreHook = (*ErrorMonitorLoggerHook)(nil)

type ErrorMonitorMessage struct {
	Entry              *loggertypes.Entry
	Goroutines         []errmontypes.Goroutine
	CurrentGoroutineID int
	StackTrace         xruntime.PCs
}

func NewErrorMonitorLoggerHook(
	ctx context.Context,
	errorMonitor errmon.ErrorMonitor,
) *ErrorMonitorLoggerHook {
	h := &ErrorMonitorLoggerHook{
		ErrorMonitor: errorMonitor,
		MinLevel:     loggertypes.LevelError,
		SendChan:     make(chan ErrorMonitorMessage, 10),
	}
	GoSafe(ctx, func() {
		h.senderLoop(ctx)
	})
	return h
}

func (h *ErrorMonitorLoggerHook) isReported(level loggertypes.Level) bool {
	return level <= h.MinLevel
}

func (h *ErrorMonitorLoggerHook) ProcessInput(
	_ belt.TraceIDs,
	level loggertypes.Level,
	args ...any,
) loggertypes.PreHookResult {
	if h.isReported(level) {
		h.report(func(l logger.Logger) { l.Log(level, args...) })
	}
	return loggertypes.PreHookResult{}
}

func (h *ErrorMonitorLoggerHook) ProcessInputf(
	_ belt.TraceIDs,
	level loggertypes.Level,
	format string,
	args ...any,
) loggertypes.PreHookResult {
	if h.isReported(level) {
		h.report(func(l logger.Logger) { l.Logf(level, format, args...) })
	}
	return loggertypes.PreHookResult{}
}

func (h *ErrorMonitorLoggerHook) ProcessInputFields(
	_ belt.TraceIDs,
	level loggertypes.Level,
	message string,
	fields field.AbstractFields,
) loggertypes.PreHookResult {
	if h.isReported(level) {
		h.report(func(l logger.Logger) { l.LogFields(level, message, fields) })
	}
	return loggertypes.PreHookResult{}
}

func (h *ErrorMonitorLoggerHook) report(logFn func(logger.Logger)) {
	catcher := &entryCatcher{}
	logFn(adapter.LoggerFromEmitter(catcher).WithLevel(loggertypes.LevelTrace))
	entry := catcher.LastEntry
	if entry == nil {
		return
	}

	entryDup := *entry
	if entry.Fields != nil {
		fields := make(field.Fields, 0, entry.Fields.Len())
		entry.Fields.ForEachField(func(f *field.Field) bool {
			fields = append(fields, *f)
			return true
		})
		entryDup.Fields = fields
	}

	all, currentID := goroutines()
	select {
	case h.SendChan <- ErrorMonitorMessage{
		Entry:              &entryDup,
		Goroutines:         all,
		CurrentGoroutineID: currentID,
		StackTrace:         xruntime.CallerStackTrace(nil),
	}:
	default:
		// the sender is busy, dropping the report
	}
}

func (h *ErrorMonitorLoggerHook) senderLoop(ctx context.Context) {
	for {
		var message ErrorMonitorMessage
		select {
		case <-ctx.Done():
			return
		case message = <-h.SendChan:
		}
		h.ErrorMonitor.Emitter().Emit(&errmontypes.Event{
			Entry:       *message.Entry,
			ExternalIDs: []any{},
			Exception: errmontypes.Exception{
				IsPanic:    message.Entry.Level <= loggertypes.LevelPanic,
				Error:      fmt.Errorf("[%s] %s", message.Entry.Level, message.Entry.Message),
				StackTrace: message.StackTrace,
			},
			CurrentGoroutineID: message.CurrentGoroutineID,
			Goroutines:         message.Goroutines,
		})
	}
}
