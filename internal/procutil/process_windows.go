//go:build windows

package procutil

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// Command builds an exec.Cmd for name that runs without a console window.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr.CreationFlags |= windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP
	cmd.SysProcAttr.CreationFlags &^= windows.CREATE_NO_WINDOW
}
