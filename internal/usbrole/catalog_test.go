package usbrole

import "testing"

func TestFunctionRoleForSerialComposite(t *testing.T) {
	t.Parallel()

	role := FunctionRoleFor("SerialCompositeConfig", []string{"DIAG", "Serial"})
	want := FunctionRole{
		Name:             "SerialCompositeConfig",
		VendorID:         0x05C6,
		ProductID:        0x319B,
		TransportType:    true,
		UseDefaultConfig: false,
	}
	if role.Function != want {
		t.Fatalf("Function = %+v, want %+v", role.Function, want)
	}
	if role.DisplayName != "Function mode (Serial)" {
		t.Fatalf("DisplayName = %q", role.DisplayName)
	}
	if role.IsHost {
		t.Fatal("expected a function role")
	}
}

func TestFunctionRoleForClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		vendor      uint16
		product     uint16
		transport   bool
		useDefault  bool
		displayName string
		mode        string
	}{
		{"Default", 0x045E, 0xF0CA, false, false, "Function mode (Default)", "Windows Phone Default USB Mode."},
		{"RetailConfig", 0x045E, 0x0A00, false, true, "Function mode (Retail)", "Windows Phone Normal USB Mode."},
		{"retailconfig", 0x045E, 0x0A00, false, true, "Function mode (retailconfig)", "Windows Phone Normal USB Mode."},
		{"DplCompositeConfig", 0x05C6, 0x90B7, true, false, "Function mode (Dpl)", "Qualcomm Data Protocol Logging Mode."},
		{"RmNetCompositeConfig", 0x05C6, 0x9001, true, false, "Function mode (RmNet)", "Qualcomm Wireless Diagnostics Mode."},
		{"VIDSTREAM", 0x045E, 0xF0CA, false, false, "Function mode (VIDSTREAM)", "Windows Phone Video Stream USB Mode."},
		{"MyConfig", 0x045E, 0xF0CA, true, false, "Function mode (My)", "Custom."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			role := FunctionRoleFor(tt.name, []string{"MTP"})
			fn := role.Function
			if fn.VendorID != tt.vendor || fn.ProductID != tt.product {
				t.Errorf("ids = %04X:%04X, want %04X:%04X", fn.VendorID, fn.ProductID, tt.vendor, tt.product)
			}
			if fn.TransportType != tt.transport {
				t.Errorf("TransportType = %v, want %v", fn.TransportType, tt.transport)
			}
			if fn.UseDefaultConfig != tt.useDefault {
				t.Errorf("UseDefaultConfig = %v, want %v", fn.UseDefaultConfig, tt.useDefault)
			}
			if role.DisplayName != tt.displayName {
				t.Errorf("DisplayName = %q, want %q", role.DisplayName, tt.displayName)
			}
			wantDesc := "Enables MTP connections from another computer. " + tt.mode
			if role.Description != wantDesc {
				t.Errorf("Description = %q, want %q", role.Description, wantDesc)
			}
		})
	}
}

func TestDescribeInterfaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		interfaces []string
		want       string
	}{
		{"three", []string{"MTP", "NCSI", "VidStream"}, "Enables MTP, NCSI and VidStream connections from another computer."},
		{"two", []string{"MTP", "IpOverUsb"}, "Enables MTP and IpOverUsb connections from another computer."},
		{"single", []string{"DIAG"}, "Enables DIAG connections from another computer."},
		{"empty", nil, "Enables connections from another computer."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DescribeInterfaces(tt.interfaces); got != tt.want {
				t.Fatalf("DescribeInterfaces(%v) = %q, want %q", tt.interfaces, got, tt.want)
			}
		})
	}
}

func TestRoleKey(t *testing.T) {
	t.Parallel()

	hosts := hostRoles()
	if hosts[0].Key() != KeyHost || hosts[1].Key() != KeyHostPowered {
		t.Fatalf("host keys = %q, %q", hosts[0].Key(), hosts[1].Key())
	}
	if !hosts[1].RequiresConfirmation() || hosts[0].RequiresConfirmation() {
		t.Fatal("only the powered host role should require confirmation")
	}
	if got := FunctionRoleFor("RetailConfig", nil).Key(); got != "function:retailconfig" {
		t.Fatalf("function key = %q", got)
	}
}
