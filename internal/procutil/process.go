// Package procutil starts the external Windows tools the switcher relies on
// (reg.exe and shutdown.exe) without flashing a console window.
package procutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Run executes name with args, waits for it to exit and returns its combined
// output. A non-zero exit status is reported together with the output.
func Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := Command(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return out.Bytes(), fmt.Errorf("procutil: %s: %w: %s", name, err, msg)
		}
		return out.Bytes(), fmt.Errorf("procutil: %s: %w", name, err)
	}
	return out.Bytes(), nil
}

// StartDetached starts name with args and returns without waiting for it.
// The child is released immediately and may outlive the caller.
func StartDetached(name string, args ...string) (int, error) {
	cmd := Command(context.Background(), name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("procutil: start %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("procutil: release %s: %w", name, err)
	}
	return pid, nil
}
