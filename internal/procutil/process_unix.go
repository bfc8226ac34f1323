//go:build !windows

package procutil

import (
	"context"
	"os/exec"
	"syscall"
)

// Command builds an exec.Cmd for name. On Unix no window handling is needed.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// detach places the child in its own session so it survives the caller's
// terminal closing.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
