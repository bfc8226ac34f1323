// Package usbrole discovers the USB personalities a device supports and
// switches between them by keeping the related registry values coherent.
//
// A device exposes one function role per subkey of the USBFN configurations
// key and, when it has a USB Type-C controller, two host roles that differ in
// whether the port supplies power. The role currently in effect is derived
// from several registry values; any combination that does not match an
// enumerated role exactly is reported as unknown.
package usbrole

import "strings"

// HostRole describes a host personality.
type HostRole struct {
	EnableVBus bool
}

// FunctionRole describes a peripheral personality backed by a USBFN
// configuration subkey.
type FunctionRole struct {
	Name             string
	VendorID         uint16
	ProductID        uint16
	TransportType    bool
	UseDefaultConfig bool
}

// Role is an immutable snapshot of one USB personality. Roles are comparable
// with ==; two roles are equal only if every field matches.
type Role struct {
	DisplayName string
	Description string
	IsHost      bool
	Host        HostRole
	Function    FunctionRole
}

// Role keys used for host roles.
const (
	KeyHost        = "host"
	KeyHostPowered = "host-powered"
)

// Key identifies a role within an enumeration. Host roles are keyed by
// their power setting and function roles by configuration name, which the
// registry already keeps unique regardless of case.
func (r Role) Key() string {
	if r.IsHost {
		if r.Host.EnableVBus {
			return KeyHostPowered
		}
		return KeyHost
	}
	return "function:" + strings.ToLower(r.Function.Name)
}

// transport is the TransportType value that must be in effect for r.
func (r Role) transport() bool {
	return !r.IsHost && r.Function.TransportType
}

// RequiresConfirmation reports whether activating r can damage the device
// when used incorrectly.
func (r Role) RequiresConfirmation() bool {
	return r.IsHost && r.Host.EnableVBus
}

const (
	hostUnpoweredName        = "Host mode (Power output disabled)"
	hostUnpoweredDescription = "Default mode of the device. Enables connecting USB devices to the phone using the Continuum dock or any powered USB docking station or hub."

	hostPoweredName        = "Host mode (Power output enabled) (Unsafe, read before enabling)"
	hostPoweredDescription = "Enables connecting USB devices to the phone using a standard USB cable, non powered USB docking station, or any non powered hub.\n" +
		"\nImportant: Do not plug a cable transmiting power into the device when running in this mode. This includes a charging cable, PC USB port, wall charger or Continuum dock. Doing so will harm your device!"
)

// PowerOutputWarning is shown before the powered host role is applied.
const PowerOutputWarning = "Switching to this mode will enable power output from the USB Type C port. " +
	"This may harm your device if you plug in a charging cable or a continuum dock. " +
	"In this mode NEVER plug in any charging cable, wall charger, PC USB Cable (connected to a PC) or any externally powered USB hub! " +
	"We cannot be taken responsible for any damage caused by this, you have been warned!"

func hostRoles() []Role {
	return []Role{
		{
			DisplayName: hostUnpoweredName,
			Description: hostUnpoweredDescription,
			IsHost:      true,
			Host:        HostRole{EnableVBus: false},
		},
		{
			DisplayName: hostPoweredName,
			Description: hostPoweredDescription,
			IsHost:      true,
			Host:        HostRole{EnableVBus: true},
		},
	}
}
