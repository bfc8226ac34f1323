package constants

// Registry keys, relative to HKEY_LOCAL_MACHINE.
const (
	KeyUSBC                = `SYSTEM\usbc`
	KeyUSB                 = `SYSTEM\CurrentControlSet\Control\USB`
	KeyUSBFN               = `SYSTEM\CurrentControlSet\Control\USBFN`
	KeyUSBFNConfigurations = `SYSTEM\CurrentControlSet\Control\USBFN\Configurations`
	KeyRetailConfiguration = `SYSTEM\CurrentControlSet\Control\USBFN\Configurations\RetailConfig`
	KeyDiagRouterService   = `SYSTEM\CurrentControlSet\Services\QCDIAGROUTER`
	KeyUFNSerialService    = `SYSTEM\CurrentControlSet\Services\ufnserialclass`
)

// Registry value names.
const (
	ValueRoleSwitchMode       = "OSDefaultRoleSwitchMode"
	ValueVBusEnable           = "VBusEnable"
	ValuePolarity             = "Polarity"
	ValueTransportType        = "TransportType"
	ValueIncludeDefaultCfg    = "IncludeDefaultCfg"
	ValueIDProduct            = "idProduct"
	ValueIDVendor             = "idVendor"
	ValueCurrentConfiguration = "CurrentConfiguration"
	ValueProductString        = "ProductString"
	ValueInterfaceList        = "InterfaceList"
)

// OSDefaultRoleSwitchMode values understood by the USB role-switch driver.
const (
	RoleSwitchModeFunction = 2
	RoleSwitchModeHost     = 6
)
