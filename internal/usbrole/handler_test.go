package usbrole

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/registry"
	"github.com/woa-project/usbfnswitch/internal/testutil"
)

func roleKeys(roles []Role) []string {
	keys := make([]string, len(roles))
	for i, role := range roles {
		keys[i] = role.Key()
	}
	return keys
}

func TestEnumerateOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "usb-c",
			doc:  usbcDevice,
			want: []string{
				KeyHost, KeyHostPowered,
				"function:default", "function:myconfig", "function:retailconfig",
				"function:serialcompositeconfig", "function:vidstream",
			},
		},
		{
			name: "micro-usb",
			doc:  microUSBDevice,
			want: []string{
				"function:default", "function:myconfig", "function:retailconfig",
				"function:serialcompositeconfig", "function:vidstream",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.doc)
			roles := env.h.Roles()
			if got := roleKeys(roles); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("role keys = %v, want %v", got, tt.want)
			}

			seen := make(map[string]bool)
			for _, role := range roles {
				if seen[role.Key()] {
					t.Fatalf("duplicate role %s", role.Key())
				}
				seen[role.Key()] = true
			}
		})
	}
}

func TestEnumerateUsesInterfaceLists(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	retail := mustLookup(t, env.h, "RetailConfig")
	want := "Enables MTP, NCSI and VidStream connections from another computer. Windows Phone Normal USB Mode."
	if retail.Description != want {
		t.Fatalf("Description = %q, want %q", retail.Description, want)
	}
}

func TestEnumerateConfigurationMissing(t *testing.T) {
	t.Parallel()

	reg := testutil.OpenProfile(t, "lumia950xl")
	_, err := NewHandler(context.Background(), reg)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("NewHandler error = %v, want ErrConfigurationMissing", err)
	}
}

func TestEnumerateMissingInterfaceList(t *testing.T) {
	t.Parallel()

	reg := testutil.OpenRegistry(t, `
keys:
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\Broken
`)
	_, err := Enumerate(context.Background(), reg)
	if !registry.IsValueAbsent(err) {
		t.Fatalf("Enumerate error = %v, want value absent", err)
	}
}

func TestSetRoleRoundTrip(t *testing.T) {
	t.Parallel()

	for _, doc := range []struct {
		name string
		doc  string
	}{
		{"usb-c", usbcDevice},
		{"micro-usb", microUSBDevice},
	} {
		doc := doc
		t.Run(doc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, doc.doc)

			for _, role := range env.h.Roles() {
				if err := env.h.SetRole(env.ctx, role); err != nil {
					t.Fatalf("SetRole(%s): %v", role.Key(), err)
				}
				got, ok, err := env.h.CurrentRole(env.ctx)
				if err != nil {
					t.Fatalf("CurrentRole after %s: %v", role.Key(), err)
				}
				if !ok || got != role {
					t.Fatalf("CurrentRole after SetRole(%s) = %s (ok=%v)", role.Key(), got.Key(), ok)
				}
			}
		})
	}
}

func TestCurrentRoleRejectsPartialMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		corrupt func(ctx context.Context, s registry.Store) error
	}{
		{
			name: "vendor id",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteInt(ctx, constants.KeyUSBFN, constants.ValueIDVendor, 0x045E)
			},
		},
		{
			name: "product id",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteInt(ctx, constants.KeyUSBFN, constants.ValueIDProduct, 0x319C)
			},
		},
		{
			name: "include default config",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteInt(ctx, constants.KeyUSBFN, constants.ValueIncludeDefaultCfg, 1)
			},
		},
		{
			name: "configuration name case",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteString(ctx, constants.KeyUSBFN, constants.ValueCurrentConfiguration, "serialcompositeconfig")
			},
		},
		{
			name: "transport type",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteInt(ctx, constants.KeyDiagRouterService, constants.ValueTransportType, 0)
			},
		},
		{
			name: "vendor id mistyped",
			corrupt: func(ctx context.Context, s registry.Store) error {
				return s.WriteString(ctx, constants.KeyUSBFN, constants.ValueIDVendor, "05C6")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, usbcDevice)

			serial := mustLookup(t, env.h, "SerialCompositeConfig")
			if err := env.h.SetRole(env.ctx, serial); err != nil {
				t.Fatalf("SetRole: %v", err)
			}
			if got := env.current(t); got != serial.Key() {
				t.Fatalf("current before corruption = %s", got)
			}

			if err := tt.corrupt(env.ctx, env.reg); err != nil {
				t.Fatalf("corrupt: %v", err)
			}
			if got := env.current(t); got != "unknown" {
				t.Fatalf("current after corrupting %s = %s, want unknown", tt.name, got)
			}
		})
	}
}

func TestCurrentRoleMissingFunctionValueIsUnknown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	if err := env.reg.DeleteValue(env.ctx, constants.KeyUSBFN, constants.ValueIDProduct); err != nil {
		t.Fatalf("delete value: %v", err)
	}
	if got := env.current(t); got != "unknown" {
		t.Fatalf("current = %s, want unknown", got)
	}
}

func TestCurrentRoleWithoutUSBCIgnoresHostState(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, microUSBDevice)

	if got := env.current(t); got != "function:retailconfig" {
		t.Fatalf("current = %s, want function:retailconfig", got)
	}
	for _, name := range env.rec.readNames() {
		if name == constants.ValueRoleSwitchMode || name == constants.ValueVBusEnable {
			t.Fatalf("read %s on a device without usb-c (reads: %v)", name, env.rec.readNames())
		}
	}
}

func TestCurrentRoleHostWithoutVBusValue(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	if err := env.reg.WriteInt(env.ctx, constants.KeyUSB, constants.ValueRoleSwitchMode, constants.RoleSwitchModeHost); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	if got := env.current(t); got != KeyHost {
		t.Fatalf("current = %s, want %s", got, KeyHost)
	}

	// Any mode other than function is host.
	if err := env.reg.WriteInt(env.ctx, constants.KeyUSB, constants.ValueRoleSwitchMode, 3); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	if err := env.reg.WriteInt(env.ctx, constants.KeyUSBC, constants.ValueVBusEnable, 1); err != nil {
		t.Fatalf("write vbus: %v", err)
	}
	if got := env.current(t); got != KeyHostPowered {
		t.Fatalf("current = %s, want %s", got, KeyHostPowered)
	}
}

func TestCurrentRoleMissingRoleSwitchMode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	if err := env.reg.DeleteValue(env.ctx, constants.KeyUSB, constants.ValueRoleSwitchMode); err != nil {
		t.Fatalf("delete value: %v", err)
	}
	if _, _, err := env.h.CurrentRole(env.ctx); !registry.IsValueAbsent(err) {
		t.Fatalf("CurrentRole error = %v, want value absent", err)
	}
}

func TestSetRoleWriteOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		doc    string
		target string
		want   []string
	}{
		{
			name:   "host on usb-c",
			doc:    usbcDevice,
			target: KeyHostPowered,
			want:   []string{constants.ValueTransportType, constants.ValueRoleSwitchMode, constants.ValueVBusEnable},
		},
		{
			name:   "function on usb-c",
			doc:    usbcDevice,
			target: "SerialCompositeConfig",
			want: []string{
				constants.ValueTransportType, constants.ValueRoleSwitchMode, constants.ValueVBusEnable,
				constants.ValueIncludeDefaultCfg, constants.ValueIDProduct, constants.ValueIDVendor, constants.ValueCurrentConfiguration,
			},
		},
		{
			name:   "function on micro-usb",
			doc:    microUSBDevice,
			target: "VidStream",
			want: []string{
				constants.ValueTransportType,
				constants.ValueIncludeDefaultCfg, constants.ValueIDProduct, constants.ValueIDVendor, constants.ValueCurrentConfiguration,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.doc)

			if err := env.h.SetRole(env.ctx, mustLookup(t, env.h, tt.target)); err != nil {
				t.Fatalf("SetRole: %v", err)
			}
			if got := env.rec.writeNames(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("writes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetRoleFunctionTurnsVBusOff(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	if err := env.h.SetRole(env.ctx, mustLookup(t, env.h, KeyHostPowered)); err != nil {
		t.Fatalf("SetRole host: %v", err)
	}
	if v := env.readInt(t, constants.KeyUSBC, constants.ValueVBusEnable); v != 1 {
		t.Fatalf("VBusEnable = %d after powered host, want 1", v)
	}
	if v := env.readInt(t, constants.KeyUSB, constants.ValueRoleSwitchMode); v != constants.RoleSwitchModeHost {
		t.Fatalf("OSDefaultRoleSwitchMode = %d, want %d", v, constants.RoleSwitchModeHost)
	}

	if err := env.h.SetRole(env.ctx, mustLookup(t, env.h, "Default")); err != nil {
		t.Fatalf("SetRole function: %v", err)
	}
	if v := env.readInt(t, constants.KeyUSBC, constants.ValueVBusEnable); v != 0 {
		t.Fatalf("VBusEnable = %d after function role, want 0", v)
	}
	if v := env.readInt(t, constants.KeyDiagRouterService, constants.ValueTransportType); v != 0 {
		t.Fatalf("TransportType = %d, want 0", v)
	}
}

func TestSetRoleStopsAtFirstFailedWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		protect   string
		target    string
		wantStep  Step
		transport int32
	}{
		{
			name:      "usbfn key denied",
			protect:   constants.KeyUSBFN,
			target:    "SerialCompositeConfig",
			wantStep:  StepIncludeDefaultCfg,
			transport: 1,
		},
		{
			name:      "role switch key denied",
			protect:   constants.KeyUSB,
			target:    KeyHost,
			wantStep:  StepRoleSwitchMode,
			transport: 0,
		},
		{
			name:      "transport key denied",
			protect:   constants.KeyDiagRouterService,
			target:    "SerialCompositeConfig",
			wantStep:  StepTransportType,
			transport: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, usbcDevice)
			target := mustLookup(t, env.h, tt.target)

			if err := env.reg.Protect(env.ctx, tt.protect, true); err != nil {
				t.Fatalf("protect: %v", err)
			}

			err := env.h.SetRole(env.ctx, target)
			var applyErr *ApplyError
			if !errors.As(err, &applyErr) {
				t.Fatalf("SetRole error = %v, want *ApplyError", err)
			}
			if applyErr.Step != tt.wantStep || applyErr.Role != target.Key() {
				t.Fatalf("ApplyError = %+v, want step %q", applyErr, tt.wantStep)
			}
			if !registry.IsAccessDenied(err) {
				t.Fatalf("expected access denied cause, got %v", err)
			}

			if v := env.readInt(t, constants.KeyDiagRouterService, constants.ValueTransportType); v != tt.transport {
				t.Fatalf("TransportType = %d, want %d", v, tt.transport)
			}
			if tt.wantStep == StepIncludeDefaultCfg {
				// Mode was already switched; the stale identity no longer matches.
				if got := env.current(t); got != "unknown" {
					t.Fatalf("current after partial apply = %s, want unknown", got)
				}
			}
		})
	}
}

func TestSetRoleRejectsForeignRoles(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, microUSBDevice)

	if err := env.h.SetRole(env.ctx, hostRoles()[0]); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("SetRole(host) on micro-usb = %v, want ErrUnknownRole", err)
	}

	forged := mustLookup(t, env.h, "RetailConfig")
	forged.Function.ProductID = 0x1234
	if err := env.h.SetRole(env.ctx, forged); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("SetRole(forged) = %v, want ErrUnknownRole", err)
	}
	if writes := env.rec.writeNames(); len(writes) != 0 {
		t.Fatalf("rejected roles must not write, got %v", writes)
	}
}

func TestSetRoleHostAfterUSBCRemoved(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	if err := env.reg.DeleteKey(env.ctx, constants.KeyUSBC); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if err := env.h.SetRole(env.ctx, mustLookup(t, env.h, KeyHost)); !errors.Is(err, ErrNoUSBC) {
		t.Fatalf("SetRole = %v, want ErrNoUSBC", err)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, usbcDevice)

	tests := []struct {
		arg  string
		want string
		ok   bool
	}{
		{arg: "1", want: KeyHost, ok: true},
		{arg: "2", want: KeyHostPowered, ok: true},
		{arg: "HOST-POWERED", want: KeyHostPowered, ok: true},
		{arg: "retailconfig", want: "function:retailconfig", ok: true},
		{arg: "function:VidStream", want: "function:vidstream", ok: true},
		{arg: " 7 ", want: "function:vidstream", ok: true},
		{arg: "0"},
		{arg: "8"},
		{arg: "Serial"},
	}

	for _, tt := range tests {
		role, ok := env.h.Lookup(tt.arg)
		if ok != tt.ok {
			t.Errorf("Lookup(%q) ok = %v, want %v", tt.arg, ok, tt.ok)
			continue
		}
		if ok && role.Key() != tt.want {
			t.Errorf("Lookup(%q) = %s, want %s", tt.arg, role.Key(), tt.want)
		}
	}
}
