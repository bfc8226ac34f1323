package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
	"github.com/woa-project/usbfnswitch/internal/regimport"
	"github.com/woa-project/usbfnswitch/internal/usbrole"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "check",
		Short:         "Check whether this device can switch USB roles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          checkDevice,
	}
}

func checkDevice(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	supportErr := usbrole.CheckSupport(ctx, s.registry)
	var unsupported *usbrole.UnsupportedError
	if supportErr != nil && !errors.As(supportErr, &unsupported) {
		return out.Error("Failed to check device support", supportErr)
	}
	hasUSBC, err := usbrole.HasUSBC(ctx, s.registry)
	if err != nil {
		return out.Error("Failed to probe USB Type-C controller", err)
	}
	needsImport, err := regimport.NeedsImport(ctx, s.registry)
	if err != nil {
		return out.Error("Failed to probe USB function configurations", err)
	}

	if out.jsonMode {
		data := map[string]interface{}{
			"backend":      s.backend,
			"supported":    unsupported == nil,
			"usb_c":        hasUSBC,
			"needs_import": needsImport,
		}
		if unsupported != nil {
			data["missing"] = unsupported.Missing
			data["reason"] = unsupported.Reason
		}
		return out.Print(data)
	}

	fmt.Printf("Backend:       %s\n", s.backend)
	if unsupported != nil {
		fmt.Printf("Supported:     no (%s)\n", unsupported.Reason)
	} else {
		fmt.Println("Supported:     yes")
	}
	fmt.Printf("USB Type-C:    %s\n", yesNo(hasUSBC))
	fmt.Printf("Needs import:  %s\n", yesNo(needsImport))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create the USB function configurations and set the product string",
		Long: `Import the bundled USB function configurations into the registry and
brand the USB product string from product.dat. This normally happens
automatically the first time roles are listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          importConfigurations,
	}
	cmd.Flags().Bool("force", false, "Import even when the configurations already exist")
	cmd.Flags().Bool("reg-exe", false, "Import through reg.exe instead of writing values directly")
	cmd.Flags().String("product-file", "", "Path to product.dat (default %SystemDrive%\\DPP\\MMO\\product.dat on the native backend)")
	return cmd
}

func importConfigurations(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")
	useRegExe, _ := cmd.Flags().GetBool("reg-exe")
	productFile, _ := cmd.Flags().GetString("product-file")

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	if useRegExe && s.backend != configstore.BackendNative {
		return out.Error("--reg-exe requires the native backend", nil)
	}

	if !force {
		needed, err := regimport.NeedsImport(ctx, s.registry)
		if err != nil {
			return out.Error("Failed to probe USB function configurations", err)
		}
		if !needed {
			return out.Success("USB function configurations already present (use --force to import again)", map[string]interface{}{
				"imported": false,
			})
		}
	}

	if err := s.importer(useRegExe, productFile).Import(ctx); err != nil {
		return out.Error("Import failed", err)
	}
	return out.Success("Imported USB function configurations", map[string]interface{}{
		"imported": true,
	})
}

func newPolarityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polarity [0|1]",
		Short: "Show or set the USB Type-C polarity",
		Long: `Without an argument, show the configured USB Type-C polarity. With 0
(normal) or 1 (reversed), write it and reboot to apply.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          polarity,
	}
	cmd.Flags().Bool("no-reboot", false, "Apply the registry change without rebooting")
	return cmd
}

func polarityName(p int32) string {
	if p == usbrole.PolarityReversed {
		return "reversed"
	}
	return "normal"
}

func polarity(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	ctx := cmd.Context()
	noReboot, _ := cmd.Flags().GetBool("no-reboot")

	s, err := openSession(cmd)
	if err != nil {
		return out.Error("Failed to open registry", err)
	}
	defer s.Close()

	if len(args) == 0 {
		p, err := usbrole.Polarity(ctx, s.registry)
		if err != nil {
			return out.Error("Failed to read polarity", err)
		}
		if out.jsonMode {
			return out.Print(map[string]interface{}{"polarity": p, "name": polarityName(p)})
		}
		fmt.Printf("Polarity: %d (%s)\n", p, polarityName(p))
		return nil
	}

	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return out.Error(fmt.Sprintf("Invalid polarity %q", args[0]), err)
	}
	if err := usbrole.SetPolarity(ctx, s.registry, int32(n)); err != nil {
		return out.Error("Failed to set polarity", err)
	}

	note, rebooting, err := s.restart(ctx, noReboot)
	if err != nil {
		return out.Error("Polarity set but the reboot could not be scheduled", err)
	}
	return out.Success(fmt.Sprintf("Polarity set to %d (%s). %s", n, polarityName(int32(n)), note), map[string]interface{}{
		"polarity":  n,
		"rebooting": rebooting,
	})
}
