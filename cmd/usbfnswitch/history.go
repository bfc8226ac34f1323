package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recent role switches",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showHistory,
	}
	cmd.Flags().Int("limit", 20, "Number of entries to show (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <id>",
		Short:         "Show a single role switch",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showSwitch,
	})
	return cmd
}

type switchView struct {
	ID        string `json:"id"`
	Backend   string `json:"backend"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func switchViewOf(e configstore.RoleSwitch) switchView {
	return switchView{
		ID:        e.ID,
		Backend:   e.Backend,
		From:      e.FromRole,
		To:        e.ToRole,
		Outcome:   e.Outcome,
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}
}

func showHistory(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	entries, err := store.ListSwitches(cmd.Context(), limit)
	if err != nil {
		return out.Error("Failed to list role switches", err)
	}

	views := make([]switchView, 0, len(entries))
	for _, e := range entries {
		views = append(views, switchViewOf(e))
	}

	if out.jsonMode {
		return out.Print(map[string]interface{}{"switches": views})
	}
	if len(views) == 0 {
		fmt.Println("No role switches recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBACKEND\tFROM\tTO\tOUTCOME")
	for _, v := range views {
		from := v.From
		if from == "" {
			from = "unknown"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.CreatedAt, v.Backend, from, v.To, v.Outcome)
	}
	return w.Flush()
}

func showSwitch(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	entry, err := store.GetSwitch(cmd.Context(), args[0])
	if err != nil {
		if configstore.IsNotFound(err) {
			return out.Error(fmt.Sprintf("No role switch with ID %s", args[0]), err)
		}
		return out.Error("Failed to read role switch", err)
	}

	v := switchViewOf(entry)
	if out.jsonMode {
		return out.Print(v)
	}

	from := v.From
	if from == "" {
		from = "unknown"
	}
	fmt.Printf("ID:      %s\n", v.ID)
	fmt.Printf("Time:    %s\n", v.CreatedAt)
	fmt.Printf("Backend: %s\n", v.Backend)
	fmt.Printf("From:    %s\n", from)
	fmt.Printf("To:      %s\n", v.To)
	fmt.Printf("Outcome: %s\n", v.Outcome)
	if v.Error != "" {
		fmt.Printf("Error:   %s\n", v.Error)
	}
	return nil
}
