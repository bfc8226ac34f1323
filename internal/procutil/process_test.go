package procutil

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func echoCmd(text string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", "echo " + text}
	}
	return "sh", []string{"-c", "echo " + text}
}

func failCmd() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", "echo broken 1>&2 && exit 3"}
	}
	return "sh", []string{"-c", "echo broken 1>&2; exit 3"}
}

func TestRunCollectsOutput(t *testing.T) {
	name, args := echoCmd("imported")
	out, err := Run(context.Background(), name, args...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(out), "imported") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunReportsFailureOutput(t *testing.T) {
	name, args := failCmd()
	_, err := Run(context.Background(), name, args...)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("error %q should include the command output", err)
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	name, args := "sleep", []string{"30"}
	if runtime.GOOS == "windows" {
		name, args = "waitfor", []string{"UsbfnswitchTestSignalNeverSent", "/T", "30"}
	}
	start := time.Now()
	if _, err := Run(ctx, name, args...); err == nil {
		t.Fatal("expected cancelled command to fail")
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("command was not stopped by context cancellation")
	}
}

func TestStartDetached(t *testing.T) {
	name, args := echoCmd("detached")
	pid, err := StartDetached(name, args...)
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d", pid)
	}
}

func TestStartDetachedMissingBinary(t *testing.T) {
	if _, err := StartDetached("usbfnswitch-no-such-binary"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
