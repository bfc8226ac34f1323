package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/woa-project/usbfnswitch/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the usbfnswitch version",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	v := version.String()

	if out.jsonMode {
		return out.Print(map[string]any{
			"version": v,
			"release": version.Release(v),
			"os":      runtime.GOOS,
			"arch":    runtime.GOARCH,
		})
	}

	fmt.Printf("usbfnswitch %s (%s/%s)\n", version.FormatVersion(v), runtime.GOOS, runtime.GOARCH)
	if !version.Release(v) {
		fmt.Println("Development build")
	}
	return nil
}
