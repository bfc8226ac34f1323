package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:           "config",
		Short:         "Show or change stored settings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	showCmd := &cobra.Command{
		Use:           "show",
		Short:         "Show all settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          configShow,
	}

	setCmd := &cobra.Command{
		Use:           "set <key> <value>",
		Short:         "Change a setting",
		Long:          "Change a setting. Known keys: " + strings.Join(configstore.SettingKeys(), ", ") + ".",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          configSet,
	}

	configCmd.AddCommand(showCmd, setCmd)
	return configCmd
}

func configShow(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	settings, err := store.LoadSettings(cmd.Context(), configstore.SettingKeys()...)
	if err != nil {
		return out.Error("Failed to load settings", err)
	}

	if out.jsonMode {
		return out.Print(settings)
	}
	for _, key := range configstore.SettingKeys() {
		fmt.Printf("%s = %s\n", key, settings[key])
	}
	return nil
}

func configSet(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	key, value := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])

	if err := configstore.ValidateSetting(key, value); err != nil {
		return out.Error("Invalid setting", err)
	}

	store, err := openStore(cmd)
	if err != nil {
		return out.Error("Failed to open state store", err)
	}
	defer store.Close()

	if err := store.SaveSettings(cmd.Context(), map[string]string{key: value}); err != nil {
		return out.Error("Failed to save setting", err)
	}
	return out.Success(fmt.Sprintf("%s = %s", key, value), map[string]interface{}{
		"key":   key,
		"value": value,
	})
}
