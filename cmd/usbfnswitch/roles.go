package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
	"github.com/woa-project/usbfnswitch/internal/usbrole"
)

// Overridden in tests.
var (
	confirmInput io.Reader = os.Stdin
	stdinIsTTY             = func() bool { return terminal.IsTerminal(int(os.Stdin.Fd())) }
)

type roleView struct {
	Index       int    `json:"index"`
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Host        bool   `json:"host"`
	Current     bool   `json:"current"`
}

func viewOf(index int, role usbrole.Role, current bool) roleView {
	return roleView{
		Index:       index,
		Key:         role.Key(),
		DisplayName: role.DisplayName,
		Description: role.Description,
		Host:        role.IsHost,
		Current:     current,
	}
}

func newRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "roles",
		Short:         "List the USB roles this device supports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          listRoles,
	}
}

func listRoles(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	h, err := s.handler(ctx)
	if err != nil {
		return out.Error("Failed to enumerate roles", err)
	}
	current, known, currentErr := h.CurrentRole(ctx)
	if currentErr != nil {
		log.Printf("[CLI] Could not determine current role: %v", currentErr)
		known = false
	}

	views := make([]roleView, 0, len(h.Roles()))
	for i, role := range h.Roles() {
		views = append(views, viewOf(i+1, role, known && role == current))
	}

	if out.jsonMode {
		data := map[string]interface{}{"roles": views}
		if currentErr != nil {
			data["current_error"] = currentErr.Error()
		}
		return out.Print(data)
	}

	if currentErr != nil {
		fmt.Fprintf(os.Stderr, "Could not determine current role: %v\n", currentErr)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKEY\tNAME\t")
	for _, v := range views {
		marker := ""
		if v.Current {
			marker = "(current)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Index, v.Key, v.DisplayName, marker)
	}
	return w.Flush()
}

func newCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "current",
		Short:         "Show the USB role currently configured",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showCurrent,
	}
}

func showCurrent(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	h, err := s.handler(ctx)
	if err != nil {
		return out.Error("Failed to enumerate roles", err)
	}
	current, known, err := h.CurrentRole(ctx)
	if err != nil {
		return out.Error("Failed to read current role", err)
	}

	if out.jsonMode {
		data := map[string]interface{}{"known": known, "role": nil}
		if known {
			data["role"] = viewOf(indexOf(h.Roles(), current), current, true)
		}
		return out.Print(data)
	}

	if !known {
		fmt.Println("Current role: unknown")
		fmt.Println("The registry does not match any supported role. Apply a role to repair it.")
		return nil
	}
	fmt.Printf("Current role: %s\n", current.DisplayName)
	fmt.Println(current.Description)
	return nil
}

func indexOf(roles []usbrole.Role, role usbrole.Role) int {
	for i, r := range roles {
		if r == role {
			return i + 1
		}
	}
	return 0
}

func newSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <role>",
		Short: "Apply a USB role and reboot",
		Long: `Apply a USB role. The role is given by its number or key from
"usbfnswitch roles", or by the USB function configuration name.

The change takes effect after a reboot, which is scheduled automatically on
the native backend unless --no-reboot is given or reboot_enabled is false.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          setRole,
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation before enabling power output")
	cmd.Flags().Bool("no-reboot", false, "Apply the registry change without rebooting")
	return cmd
}

func setRole(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")
	noReboot, _ := cmd.Flags().GetBool("no-reboot")

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	h, err := s.handler(ctx)
	if err != nil {
		return out.Error("Failed to enumerate roles", err)
	}

	target, ok := h.Lookup(args[0])
	if !ok {
		return out.Error(fmt.Sprintf("Unknown role %q", args[0]), usbrole.ErrUnknownRole)
	}

	current, known, err := h.CurrentRole(ctx)
	if err != nil {
		log.Printf("[CLI] Could not determine current role, applying anyway: %v", err)
		known = false
	}
	if known && current == target {
		return out.Success(fmt.Sprintf("%s is already active", target.DisplayName), map[string]interface{}{
			"role":    target.Key(),
			"changed": false,
		})
	}

	if target.RequiresConfirmation() && !yes {
		if err := confirmPowerOutput(out); err != nil {
			return out.Error("Role not applied", err)
		}
	}

	from := ""
	if known {
		from = current.Key()
	}
	entry := configstore.RoleSwitch{Backend: s.backend, FromRole: from, ToRole: target.Key(), Outcome: configstore.OutcomeApplied}

	applyErr := h.SetRole(ctx, target)
	if applyErr != nil {
		entry.Outcome = configstore.OutcomeFailed
		entry.Error = applyErr.Error()
	}
	if _, err := s.store.RecordSwitch(ctx, entry); err != nil {
		log.Printf("[CLI] Failed to record role switch: %v", err)
	}

	if applyErr != nil {
		var applyStep *usbrole.ApplyError
		if errors.As(applyErr, &applyStep) {
			return out.Error(fmt.Sprintf("Failed to apply %s at step %q; the registry may be partially updated, reboot and retry", target.DisplayName, applyStep.Step), applyErr)
		}
		return out.Error(fmt.Sprintf("Failed to apply %s", target.DisplayName), applyErr)
	}

	note, rebooting, err := s.restart(ctx, noReboot)
	if err != nil {
		return out.Error("Role applied but the reboot could not be scheduled", err)
	}
	return out.Success(fmt.Sprintf("Applied %s. %s", target.DisplayName, note), map[string]interface{}{
		"role":      target.Key(),
		"changed":   true,
		"rebooting": rebooting,
	})
}

// confirmPowerOutput shows the power output warning and waits for the user
// to type "yes". Without a terminal the caller must pass --yes.
func confirmPowerOutput(out *OutputFormatter) error {
	if out.jsonMode || !stdinIsTTY() {
		return fmt.Errorf("enabling power output requires confirmation; pass --yes to accept the risk")
	}

	fmt.Fprintf(os.Stderr, "WARNING: %s\n\nType \"yes\" to continue: ", usbrole.PowerOutputWarning)
	line, err := bufio.NewReader(confirmInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return nil
	}
	return fmt.Errorf("cancelled by user")
}
