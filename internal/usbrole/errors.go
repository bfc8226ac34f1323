package usbrole

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing is returned when the USBFN configurations key
	// does not exist. Running the first-run import creates it.
	ErrConfigurationMissing = errors.New("usbrole: USB function configurations missing")

	// ErrUnknownRole is returned by SetRole for a role that is not part of
	// the handler's enumeration.
	ErrUnknownRole = errors.New("usbrole: role not available on this device")

	// ErrNoUSBC is returned for host and polarity operations on devices
	// without a USB Type-C controller.
	ErrNoUSBC = errors.New("usbrole: device has no USB Type-C controller")

	// ErrUnsupportedDevice is wrapped by UnsupportedError.
	ErrUnsupportedDevice = errors.New("usbrole: device not supported")
)

// Step names one registry write performed while applying a role.
type Step string

const (
	StepTransportType     Step = "transport type"
	StepRoleSwitchMode    Step = "role switch mode"
	StepVBus              Step = "vbus"
	StepIncludeDefaultCfg Step = "include default config"
	StepProductID         Step = "product id"
	StepVendorID          Step = "vendor id"
	StepCurrentConfig     Step = "current configuration"
)

// ApplyError reports the write that stopped SetRole. Writes before Step were
// applied and are not rolled back.
type ApplyError struct {
	Role string
	Step Step
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("usbrole: apply %s: write %s: %v", e.Role, e.Step, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// UnsupportedError explains why the device cannot switch USB roles.
type UnsupportedError struct {
	Missing string
	Reason  string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("usbrole: device not supported: %s", e.Reason)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedDevice }
