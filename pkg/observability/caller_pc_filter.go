package observability

import (
	"runtime"
	"strings"
)

// CallerPCFilter wraps a caller filter of go-belt, so that log entries
// point to the code that logs rather than to the logging helpers.
func CallerPCFilter(
	originalPCFilter func(uintptr) bool,
) func(uintptr) bool {
	return func(pc uintptr) bool {
		if !originalPCFilter(pc) {
			return false
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			return true
		}
		funcName := fn.Name()
		switch {
		case strings.Contains(funcName, "pkg/xsync."):
			return false
		case strings.Contains(funcName, "pkg/observability."):
			return false
		}
		file, _ := fn.FileLine(pc)
		switch {
		case strings.HasSuffix(file, "/context.go"):
			return false
		case strings.HasSuffix(file, "/logger.go"):
			return false
		}
		return true
	}
}
