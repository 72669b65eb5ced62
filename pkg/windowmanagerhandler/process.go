package windowmanagerhandler

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/shirou/gopsutil/process"
)

func processName(ctx context.Context, pid PID) string {
	if pid <= 0 {
		return ""
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		logger.Tracef(ctx, "unable to get process info using PID %d: %v", pid, err)
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		logger.Tracef(ctx, "unable to get the process name using PID %d: %v", pid, err)
		return ""
	}
	return name
}
