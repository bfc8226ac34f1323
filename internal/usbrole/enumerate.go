package usbrole

import (
	"context"
	"fmt"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/registry"
)

// HasUSBC reports whether the device has a USB Type-C controller, which is
// what makes host roles available.
func HasUSBC(ctx context.Context, store registry.Store) (bool, error) {
	ok, err := store.KeyExists(ctx, constants.KeyUSBC)
	if err != nil {
		return false, fmt.Errorf("usbrole: probe usb-c controller: %w", err)
	}
	return ok, nil
}

// Enumerate lists the roles available on the device: the unpowered and
// powered host roles when a USB Type-C controller is present, followed by one
// function role per configuration subkey in registry enumeration order.
func Enumerate(ctx context.Context, store registry.Store) ([]Role, error) {
	hasUSBC, err := HasUSBC(ctx, store)
	if err != nil {
		return nil, err
	}

	var roles []Role
	if hasUSBC {
		roles = append(roles, hostRoles()...)
	}

	names, err := store.SubKeys(ctx, constants.KeyUSBFNConfigurations)
	if registry.IsKeyAbsent(err) {
		return nil, ErrConfigurationMissing
	}
	if err != nil {
		return nil, fmt.Errorf("usbrole: list configurations: %w", err)
	}

	for _, name := range names {
		interfaces, err := store.ReadStrings(ctx, registry.Join(constants.KeyUSBFNConfigurations, name), constants.ValueInterfaceList)
		if err != nil {
			return nil, fmt.Errorf("usbrole: read interfaces of %s: %w", name, err)
		}
		roles = append(roles, FunctionRoleFor(name, interfaces))
	}
	return roles, nil
}
