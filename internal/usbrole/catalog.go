package usbrole

import "strings"

// configuration is the closed set of USBFN configurations with known
// identities. Names outside the set are custom.
type configuration int

const (
	configCustom configuration = iota
	configDefault
	configRetail
	configDPLComposite
	configRmNetComposite
	configSerialComposite
	configVidStream
)

func classify(name string) configuration {
	switch strings.ToLower(name) {
	case "default":
		return configDefault
	case "retailconfig":
		return configRetail
	case "dplcompositeconfig":
		return configDPLComposite
	case "rmnetcompositeconfig":
		return configRmNetComposite
	case "serialcompositeconfig":
		return configSerialComposite
	case "vidstream":
		return configVidStream
	}
	return configCustom
}

const (
	vendorMicrosoft = 0x045E
	vendorQualcomm  = 0x05C6
)

// ids returns the USB vendor and product identifiers announced in this
// configuration.
func (c configuration) ids() (vendor, product uint16) {
	switch c {
	case configRetail:
		return vendorMicrosoft, 0x0A00
	case configDPLComposite:
		return vendorQualcomm, 0x90B7
	case configRmNetComposite:
		return vendorQualcomm, 0x9001
	case configSerialComposite:
		return vendorQualcomm, 0x319B
	case configDefault, configVidStream, configCustom:
		return vendorMicrosoft, 0xF0CA
	}
	return vendorMicrosoft, 0xF0CA
}

// diagnostic reports whether the configuration routes Qualcomm diagnostics
// over USB, which requires TransportType to be set.
func (c configuration) diagnostic() bool {
	switch c {
	case configDefault, configRetail, configVidStream:
		return false
	case configDPLComposite, configRmNetComposite, configSerialComposite, configCustom:
		return true
	}
	return true
}

func (c configuration) includesDefaultConfig() bool {
	return c == configRetail
}

func (c configuration) mode() string {
	switch c {
	case configDefault:
		return "Windows Phone Default USB Mode."
	case configRetail:
		return "Windows Phone Normal USB Mode."
	case configDPLComposite:
		return "Qualcomm Data Protocol Logging Mode."
	case configRmNetComposite:
		return "Qualcomm Wireless Diagnostics Mode."
	case configSerialComposite:
		return "Qualcomm Serial Diagnostics Mode."
	case configVidStream:
		return "Windows Phone Video Stream USB Mode."
	case configCustom:
		return "Custom."
	}
	return "Custom."
}

// FunctionRoleFor classifies a configuration subkey. The result depends on
// name and interfaces only.
func FunctionRoleFor(name string, interfaces []string) Role {
	c := classify(name)
	vendor, product := c.ids()
	return Role{
		DisplayName: functionDisplayName(name),
		Description: DescribeInterfaces(interfaces) + " " + c.mode(),
		Function: FunctionRole{
			Name:             name,
			VendorID:         vendor,
			ProductID:        product,
			TransportType:    c.diagnostic(),
			UseDefaultConfig: c.includesDefaultConfig(),
		},
	}
}

func functionDisplayName(name string) string {
	short := strings.ReplaceAll(name, "Config", "")
	short = strings.ReplaceAll(short, "Composite", "")
	return "Function mode (" + short + ")"
}

// DescribeInterfaces renders an interface list as a sentence, joining the
// last two names with "and".
func DescribeInterfaces(interfaces []string) string {
	var list string
	switch n := len(interfaces); n {
	case 0:
		return "Enables connections from another computer."
	case 1:
		list = interfaces[0]
	default:
		list = strings.Join(interfaces[:n-1], ", ") + " and " + interfaces[n-1]
	}
	return "Enables " + list + " connections from another computer."
}
