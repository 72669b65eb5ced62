//go:build linux
// +build linux

package windowmanagerhandler

import (
	"context"
	"fmt"
)

func (wmh *WindowManagerHandler) initUsingWayland(context.Context) error {
	return fmt.Errorf("support of Wayland is not implemented, yet")
}
