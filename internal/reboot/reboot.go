// Package reboot requests the system restart that makes a USB role change
// take effect.
package reboot

import (
	"fmt"
	"log"
	"runtime"
	"strconv"
	"time"

	"github.com/woa-project/usbfnswitch/internal/procutil"
)

// Rebooter schedules a restart. Implementations do not wait for it.
type Rebooter interface {
	Reboot(delay time.Duration) error
}

// StartFunc launches a command without waiting for it.
type StartFunc func(name string, args ...string) (int, error)

// Command reboots by running the platform shutdown tool detached.
type Command struct {
	GOOS  string
	Start StartFunc
}

// NewCommand returns a Command for the running platform.
func NewCommand() *Command {
	return &Command{GOOS: runtime.GOOS, Start: procutil.StartDetached}
}

// Args returns the shutdown invocation for delay, rounded down to whole
// seconds on Windows and whole minutes elsewhere.
func (c *Command) Args(delay time.Duration) (string, []string) {
	if delay < 0 {
		delay = 0
	}
	if c.GOOS == "windows" {
		return "shutdown", []string{"/r", "/t", strconv.Itoa(int(delay / time.Second)), "/f"}
	}
	minutes := int(delay / time.Minute)
	if minutes == 0 {
		return "shutdown", []string{"-r", "now"}
	}
	return "shutdown", []string{"-r", "+" + strconv.Itoa(minutes)}
}

func (c *Command) Reboot(delay time.Duration) error {
	name, args := c.Args(delay)
	start := c.Start
	if start == nil {
		start = procutil.StartDetached
	}
	pid, err := start(name, args...)
	if err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	log.Printf("[Reboot] Restart scheduled in %s (pid %d)", delay, pid)
	return nil
}

// Disabled records that a reboot was skipped.
type Disabled struct {
	Reason string
}

func (d Disabled) Reboot(delay time.Duration) error {
	log.Printf("[Reboot] Skipped restart (%s); reboot manually to apply", d.Reason)
	return nil
}
