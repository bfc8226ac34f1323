package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/woa-project/usbfnswitch/internal/registry"
	"github.com/woa-project/usbfnswitch/internal/registry/fixture"
)

func newEmulatorCommand() *cobra.Command {
	emulatorCmd := &cobra.Command{
		Use:   "emulator",
		Short: "Manage the emulated registry",
		Long: `The emulated registry lives in the state database and stands in for the
Windows registry when the emulated backend is selected. Load a bundled device
profile or a YAML snapshot, inspect it with dump, and use protect or delete to
reproduce damaged devices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	loadCmd := &cobra.Command{
		Use:           "load [file]",
		Short:         "Replace the emulated registry with a profile or YAML snapshot",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          emulatorLoad,
	}
	loadCmd.Flags().String("profile", "", "Bundled device profile to load")
	loadCmd.Flags().Bool("merge", false, "Merge into the existing keys instead of replacing them")

	profilesCmd := &cobra.Command{
		Use:           "profiles",
		Short:         "List bundled device profiles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          emulatorProfiles,
	}

	dumpCmd := &cobra.Command{
		Use:           "dump",
		Short:         "Print the emulated registry as YAML",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          emulatorDump,
	}
	dumpCmd.Flags().StringP("output", "o", "", "Write the snapshot to a file instead of stdout")

	protectCmd := &cobra.Command{
		Use:           "protect <key>",
		Short:         "Make an emulated key reject writes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          emulatorProtect,
	}
	protectCmd.Flags().Bool("off", false, "Remove the protection")

	deleteCmd := &cobra.Command{
		Use:           "delete <key> [value]",
		Short:         "Delete an emulated key or a single value",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          emulatorDelete,
	}

	emulatorCmd.AddCommand(loadCmd, profilesCmd, dumpCmd, protectCmd, deleteCmd)
	return emulatorCmd
}

func emulatorLoad(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()
	profile, _ := cmd.Flags().GetString("profile")
	merge, _ := cmd.Flags().GetBool("merge")

	if (profile == "") == (len(args) == 0) {
		return out.Error("Specify either a snapshot file or --profile", nil)
	}

	var (
		f      *fixture.Fixture
		err    error
		source string
	)
	if profile != "" {
		f, err = fixture.Profile(profile)
		source = "profile " + profile
	} else {
		f, err = fixture.Load(args[0])
		source = args[0]
	}
	if err != nil {
		return out.Error("Failed to load snapshot", err)
	}

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	reg := store.Registry()
	if !merge {
		if err := reg.Reset(ctx); err != nil {
			return out.Error("Failed to reset emulated registry", err)
		}
	}
	if err := fixture.Apply(ctx, reg, f); err != nil {
		return out.Error("Failed to apply snapshot", err)
	}
	return out.Success(fmt.Sprintf("Loaded %d keys from %s", len(f.Keys), source), map[string]interface{}{
		"keys":   len(f.Keys),
		"source": source,
	})
}

func emulatorProfiles(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)

	names := fixture.Profiles()
	if out.jsonMode {
		type profileView struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		views := make([]profileView, 0, len(names))
		for _, name := range names {
			f, err := fixture.Profile(name)
			if err != nil {
				return out.Error("Failed to load profile", err)
			}
			views = append(views, profileView{Name: name, Description: f.Description})
		}
		return out.Print(map[string]interface{}{"profiles": views})
	}

	for _, name := range names {
		f, err := fixture.Profile(name)
		if err != nil {
			return out.Error("Failed to load profile", err)
		}
		fmt.Printf("%-12s %s\n", name, f.Description)
	}
	return nil
}

func emulatorDump(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	output, _ := cmd.Flags().GetString("output")

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	f, err := fixture.Dump(cmd.Context(), store.Registry())
	if err != nil {
		return out.Error("Failed to read emulated registry", err)
	}

	if out.jsonMode && output == "" {
		return out.Print(f)
	}

	data, err := f.Marshal()
	if err != nil {
		return out.Error("Failed to encode snapshot", err)
	}
	if output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return out.Error("Failed to write snapshot", err)
	}
	return out.Success(fmt.Sprintf("Wrote %d keys to %s", len(f.Keys), output), map[string]interface{}{
		"keys": len(f.Keys),
		"path": output,
	})
}

func emulatorProtect(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	off, _ := cmd.Flags().GetBool("off")

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	path, _ := registry.TrimHive(args[0])
	if err := store.Registry().Protect(cmd.Context(), path, !off); err != nil {
		return out.Error("Failed to change key protection", err)
	}

	state := "protected"
	if off {
		state = "writable"
	}
	return out.Success(fmt.Sprintf("%s is now %s", path, state), map[string]interface{}{
		"path":      path,
		"protected": !off,
	})
}

func emulatorDelete(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	path, _ := registry.TrimHive(args[0])
	reg := store.Registry()
	if len(args) == 2 {
		if err := reg.DeleteValue(ctx, path, args[1]); err != nil {
			if registry.IsNotFound(err) {
				return out.Error(fmt.Sprintf("No value %s in %s", args[1], path), err)
			}
			return out.Error("Failed to delete value", err)
		}
		return out.Success(fmt.Sprintf("Deleted %s\\%s", path, args[1]), nil)
	}
	if err := reg.DeleteKey(ctx, path); err != nil {
		if registry.IsNotFound(err) {
			return out.Error(fmt.Sprintf("No key %s", path), err)
		}
		return out.Error("Failed to delete key", err)
	}
	return out.Success(fmt.Sprintf("Deleted %s", path), nil)
}
