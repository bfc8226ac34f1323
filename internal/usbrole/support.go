package usbrole

import (
	"context"
	"fmt"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/registry"
)

var requiredServices = []struct {
	key    string
	reason string
}{
	{constants.KeyUFNSerialService, "Your device is missing the Qualcomm USB Composite device or driver."},
	{constants.KeyDiagRouterService, "Your device is missing the Qualcomm Diagnostic Router device or driver."},
}

// CheckSupport verifies that the driver services role switching depends on
// are installed. It returns an *UnsupportedError naming the first missing
// service, or nil when the device is supported.
func CheckSupport(ctx context.Context, store registry.Store) error {
	for _, svc := range requiredServices {
		ok, err := store.KeyExists(ctx, svc.key)
		if err != nil {
			return fmt.Errorf("usbrole: probe %s: %w", registry.Base(svc.key), err)
		}
		if !ok {
			return &UnsupportedError{Missing: registry.Base(svc.key), Reason: svc.reason}
		}
	}
	return nil
}
