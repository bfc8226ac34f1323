package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/woa-project/usbfnswitch/internal/config"
	"github.com/woa-project/usbfnswitch/internal/version"
)

// OutputFormatter handles output in JSON or human-readable format
type OutputFormatter struct {
	jsonMode bool
}

// newOutputFormatter creates a new formatter based on the command's --json flag
func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format
func (f *OutputFormatter) Print(data interface{}) error {
	if s, ok := data.(string); ok && !f.jsonMode {
		fmt.Println(s)
		return nil
	}
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

// Success outputs a success message
func (f *OutputFormatter) Success(message string, data map[string]interface{}) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": true,
			"message": message,
		}
		for k, v := range data {
			output[k] = v
		}
		return f.Print(output)
	}
	fmt.Println(message)
	return nil
}

// Error outputs an error message
func (f *OutputFormatter) Error(message string, err error) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": false,
			"error":   message,
		}
		if err != nil {
			output["details"] = err.Error()
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(os.Stderr, string(jsonBytes))
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
		} else {
			fmt.Fprintln(os.Stderr, message)
		}
	}
	if err == nil {
		return fmt.Errorf("%s", message)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "usbfnswitch",
		Short: "Switch the USB role of a Windows on ARM phone",
		Long: `usbfnswitch lists the USB personalities a device supports and switches
between them by rewriting the USB function and role-switch registry values.
The new role takes effect after a reboot.

On Windows the native registry is used. Elsewhere, or with --backend emulated,
the registry is emulated inside the state database so roles can be rehearsed
against a recorded device profile.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(*cobra.Command, []string) { closeLogging() },
	}
	rootCmd.Version = version.FormatVersion(version.String())
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := rootCmd.PersistentFlags()
	flags.Bool("json", false, "Output in JSON format")
	flags.String("backend", "", "Registry backend (native|emulated); defaults to the stored setting")
	flags.String("state-db", "", "Path to the state database (default ~/.usbfnswitch/state.db)")
	flags.BoolP("verbose", "v", false, "Also write log output to stderr")

	rootCmd.AddCommand(
		newRolesCommand(),
		newCurrentCommand(),
		newSetCommand(),
		newCheckCommand(),
		newImportCommand(),
		newPolarityCommand(),
		newHistoryCommand(),
		newEmulatorCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// logFile is the open CLI log, set by setupLogging.
var logFile *os.File

// setupLogging sends log output to the CLI log file, and to stderr as well
// when --verbose is set.
func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	paths, err := config.EnsureDirs()
	if err != nil {
		return fmt.Errorf("initialise directories: %w", err)
	}

	closeLogging()
	f, err := os.OpenFile(paths.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f

	var w io.Writer = f
	if verbose {
		w = io.MultiWriter(os.Stderr, f)
	}
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Printf("=== usbfnswitch %s (PID: %d) %s ===", version.String(), os.Getpid(), cmd.CommandPath())
	return nil
}

// closeLogging points the logger back at stderr and closes the log file.
func closeLogging() {
	if logFile == nil {
		return
	}
	log.SetOutput(os.Stderr)
	logFile.Close()
	logFile = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	closeLogging()
	if err != nil {
		// Error is already printed by command handlers
		os.Exit(1)
	}
}
