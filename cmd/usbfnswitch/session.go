package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woa-project/usbfnswitch/internal/config"
	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
	"github.com/woa-project/usbfnswitch/internal/reboot"
	"github.com/woa-project/usbfnswitch/internal/regimport"
	"github.com/woa-project/usbfnswitch/internal/registry"
	"github.com/woa-project/usbfnswitch/internal/usbrole"
)

// Overridden in tests.
var (
	nativeRegistry = registry.Native
	newRebooter    = func() reboot.Rebooter { return reboot.NewCommand() }
)

// session bundles the state store and the registry backend a command runs
// against.
type session struct {
	store    *configstore.Store
	registry registry.Store
	backend  string
	paths    config.Paths
}

// openStore opens the state database named by --state-db.
func openStore(cmd *cobra.Command) (*configstore.Store, error) {
	dbPath, _ := cmd.Flags().GetString("state-db")
	return configstore.Open(configstore.Options{DBPath: config.ExpandPath(dbPath)})
}

func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}

	backend, _ := cmd.Flags().GetString("backend")
	backend = strings.TrimSpace(backend)
	if backend == "" {
		backend, err = store.Backend(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	s := &session{store: store, backend: backend, paths: config.GetPaths()}
	switch backend {
	case configstore.BackendNative:
		s.registry, err = nativeRegistry()
		if err != nil {
			store.Close()
			if errors.Is(err, registry.ErrUnsupported) {
				return nil, fmt.Errorf("native registry unavailable on this platform, use --backend %s: %w", configstore.BackendEmulated, err)
			}
			return nil, err
		}
	case configstore.BackendEmulated:
		s.registry = store.Registry()
	default:
		store.Close()
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, configstore.BackendNative, configstore.BackendEmulated)
	}
	log.Printf("[CLI] Using %s registry backend", backend)
	return s, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func (s *session) importer(useRegExe bool, productFile string) *regimport.Importer {
	if productFile == "" && s.backend == configstore.BackendNative {
		productFile = regimport.DefaultProductFile()
	}
	return &regimport.Importer{
		Store:       s.registry,
		UseRegExe:   useRegExe,
		TempDir:     s.paths.TempDir,
		ProductFile: productFile,
	}
}

// handler checks that the device is supported and enumerates its roles.
// The first-run import runs when the retail configuration is absent, and
// again if enumeration still finds no configurations at all.
func (s *session) handler(ctx context.Context) (*usbrole.Handler, error) {
	if err := usbrole.CheckSupport(ctx, s.registry); err != nil {
		return nil, err
	}

	needed, err := regimport.NeedsImport(ctx, s.registry)
	if err != nil {
		return nil, err
	}
	if needed {
		log.Printf("[CLI] Retail USBFN configuration missing, running first-time import")
		if err := s.firstRunImport(ctx); err != nil {
			return nil, err
		}
	}

	h, err := usbrole.NewHandler(ctx, s.registry)
	if errors.Is(err, usbrole.ErrConfigurationMissing) && !needed {
		log.Printf("[CLI] USBFN configurations missing, running first-time import")
		if err := s.firstRunImport(ctx); err != nil {
			return nil, err
		}
		h, err = usbrole.NewHandler(ctx, s.registry)
	}
	return h, err
}

func (s *session) firstRunImport(ctx context.Context) error {
	if err := s.importer(false, "").Import(ctx); err != nil {
		return fmt.Errorf("first-time import: %w", err)
	}
	return nil
}

// rebooter returns the rebooter for this session. The emulated backend and
// the reboot_enabled setting both suppress the restart.
func (s *session) rebooter(ctx context.Context, noReboot bool) (reboot.Rebooter, error) {
	if noReboot {
		return reboot.Disabled{Reason: "--no-reboot"}, nil
	}
	if s.backend != configstore.BackendNative {
		return reboot.Disabled{Reason: s.backend + " backend"}, nil
	}
	enabled, err := s.store.RebootEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return reboot.Disabled{Reason: configstore.SettingRebootEnabled + " is false"}, nil
	}
	return newRebooter(), nil
}

// restart schedules the reboot that applies a registry change and returns a
// line describing what happened.
func (s *session) restart(ctx context.Context, noReboot bool) (string, bool, error) {
	r, err := s.rebooter(ctx, noReboot)
	if err != nil {
		return "", false, err
	}
	delay, err := s.store.RebootDelay(ctx)
	if err != nil {
		return "", false, err
	}
	if err := r.Reboot(delay); err != nil {
		return "", false, err
	}
	if _, skipped := r.(reboot.Disabled); skipped {
		return "Reboot the device to apply the change.", false, nil
	}
	return fmt.Sprintf("Rebooting in %s to apply the change.", delay), true, nil
}
