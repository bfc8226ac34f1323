package usbrole

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/registry"
)

// Handler reads and applies USB roles against a registry store. The role
// list is enumerated once by NewHandler and not refreshed afterwards.
//
// Handler assumes it is the only writer of the keys it touches; concurrent
// changes by another process are neither detected nor prevented.
type Handler struct {
	store registry.Store
	roles []Role
}

// NewHandler enumerates the device's roles. It returns ErrConfigurationMissing
// when the first-run import has not been performed.
func NewHandler(ctx context.Context, store registry.Store) (*Handler, error) {
	roles, err := Enumerate(ctx, store)
	if err != nil {
		return nil, err
	}
	return &Handler{store: store, roles: roles}, nil
}

// Roles returns a copy of the enumerated roles in display order.
func (h *Handler) Roles() []Role {
	return append([]Role(nil), h.roles...)
}

// Lookup resolves a role by key, by configuration name (case-insensitive)
// or by its 1-based position in Roles.
func (h *Handler) Lookup(arg string) (Role, bool) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(h.roles) {
			return h.roles[n-1], true
		}
		return Role{}, false
	}
	for _, role := range h.roles {
		if strings.EqualFold(role.Key(), arg) {
			return role, true
		}
		if !role.IsHost && strings.EqualFold(role.Function.Name, arg) {
			return role, true
		}
	}
	return Role{}, false
}

func (h *Handler) contains(role Role) bool {
	for _, r := range h.roles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentRole classifies the registry state against the enumerated roles.
// The boolean is false when the state matches no role exactly, which is the
// expected outcome after an interrupted SetRole.
//
// Devices without a USB Type-C controller are always in function mode; for
// them neither the role switch mode nor VBusEnable is read.
func (h *Handler) CurrentRole(ctx context.Context) (Role, bool, error) {
	hasUSBC, err := HasUSBC(ctx, h.store)
	if err != nil {
		return Role{}, false, err
	}

	functionActive := true
	if hasUSBC {
		mode, err := h.store.ReadInt(ctx, constants.KeyUSB, constants.ValueRoleSwitchMode)
		if err != nil {
			return Role{}, false, fmt.Errorf("usbrole: read role switch mode: %w", err)
		}
		functionActive = mode == constants.RoleSwitchModeFunction
	}

	if !functionActive {
		return h.currentHostRole(ctx)
	}
	return h.currentFunctionRole(ctx)
}

func (h *Handler) currentHostRole(ctx context.Context) (Role, bool, error) {
	vbus, err := h.store.ReadInt(ctx, constants.KeyUSBC, constants.ValueVBusEnable)
	switch {
	case registry.IsValueAbsent(err):
		vbus = 0
	case err != nil:
		return Role{}, false, fmt.Errorf("usbrole: read vbus: %w", err)
	}

	for _, role := range h.roles {
		if role.IsHost && role.Host.EnableVBus == (vbus == 1) {
			return role, true, nil
		}
	}
	return Role{}, false, nil
}

// functionState is the registry state a function role is matched against.
type functionState struct {
	configuration  string
	vendorID       int32
	productID      int32
	includeDefault int32
	transportType  int32
}

func (h *Handler) readFunctionState(ctx context.Context) (functionState, error) {
	var (
		st  functionState
		err error
	)
	if st.includeDefault, err = h.store.ReadInt(ctx, constants.KeyUSBFN, constants.ValueIncludeDefaultCfg); err != nil {
		return st, err
	}
	if st.productID, err = h.store.ReadInt(ctx, constants.KeyUSBFN, constants.ValueIDProduct); err != nil {
		return st, err
	}
	if st.vendorID, err = h.store.ReadInt(ctx, constants.KeyUSBFN, constants.ValueIDVendor); err != nil {
		return st, err
	}
	if st.configuration, err = h.store.ReadString(ctx, constants.KeyUSBFN, constants.ValueCurrentConfiguration); err != nil {
		return st, err
	}
	if st.transportType, err = h.store.ReadInt(ctx, constants.KeyDiagRouterService, constants.ValueTransportType); err != nil {
		return st, err
	}
	return st, nil
}

func (h *Handler) currentFunctionRole(ctx context.Context) (Role, bool, error) {
	st, err := h.readFunctionState(ctx)
	if err != nil {
		// A missing or mistyped value means the state was never written
		// completely, which classifies as unknown rather than failing.
		var typeErr *registry.TypeError
		if registry.IsValueAbsent(err) || errors.As(err, &typeErr) {
			log.Printf("[Roles] function state incomplete: %v", err)
			return Role{}, false, nil
		}
		return Role{}, false, fmt.Errorf("usbrole: read function state: %w", err)
	}

	for _, role := range h.roles {
		if role.IsHost || role.Function.Name != st.configuration {
			continue
		}
		fn := role.Function
		if int32(fn.VendorID) == st.vendorID &&
			int32(fn.ProductID) == st.productID &&
			fn.UseDefaultConfig == (st.includeDefault == 1) &&
			fn.TransportType == (st.transportType == 1) {
			return role, true, nil
		}
		break
	}
	return Role{}, false, nil
}

// SetRole writes every registry value that makes target the active role.
//
// TransportType is written first, then the role switch mode on USB Type-C
// devices, then either VBusEnable (host) or the USBFN identity values
// (function). Switching to a function role on a USB Type-C device also turns
// VBusEnable off. The first failing write stops the sequence with an
// *ApplyError; earlier writes stay in place and CurrentRole reports the
// result as unknown. Nothing takes effect until the device reboots.
func (h *Handler) SetRole(ctx context.Context, target Role) error {
	if !h.contains(target) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, target.Key())
	}

	hasUSBC, err := HasUSBC(ctx, h.store)
	if err != nil {
		return err
	}
	if target.IsHost && !hasUSBC {
		return ErrNoUSBC
	}

	log.Printf("[Roles] Applying %s (%s)", target.Key(), target.DisplayName)

	w := roleWriter{ctx: ctx, store: h.store, role: target.Key()}
	w.writeBool(StepTransportType, constants.KeyDiagRouterService, constants.ValueTransportType, target.transport())

	if hasUSBC {
		mode := int32(constants.RoleSwitchModeFunction)
		if target.IsHost {
			mode = constants.RoleSwitchModeHost
		}
		w.writeInt(StepRoleSwitchMode, constants.KeyUSB, constants.ValueRoleSwitchMode, mode)
		// Function roles write VBusEnable too, so power output is off
		// whenever the port is not in host mode.
		w.writeBool(StepVBus, constants.KeyUSBC, constants.ValueVBusEnable, target.IsHost && target.Host.EnableVBus)
	}

	if !target.IsHost {
		fn := target.Function
		w.writeBool(StepIncludeDefaultCfg, constants.KeyUSBFN, constants.ValueIncludeDefaultCfg, fn.UseDefaultConfig)
		w.writeInt(StepProductID, constants.KeyUSBFN, constants.ValueIDProduct, int32(fn.ProductID))
		w.writeInt(StepVendorID, constants.KeyUSBFN, constants.ValueIDVendor, int32(fn.VendorID))
		w.writeString(StepCurrentConfig, constants.KeyUSBFN, constants.ValueCurrentConfiguration, fn.Name)
	}

	if w.err != nil {
		log.Printf("[Roles] Apply of %s stopped: %v", target.Key(), w.err)
		return w.err
	}
	log.Printf("[Roles] Applied %s, reboot required", target.Key())
	return nil
}

// roleWriter performs a sequence of writes and stops at the first failure.
type roleWriter struct {
	ctx   context.Context
	store registry.Store
	role  string
	err   error
}

func (w *roleWriter) fail(step Step, err error) {
	w.err = &ApplyError{Role: w.role, Step: step, Err: err}
}

func (w *roleWriter) writeInt(step Step, path, name string, value int32) {
	if w.err != nil {
		return
	}
	if err := w.store.WriteInt(w.ctx, path, name, value); err != nil {
		w.fail(step, err)
	}
}

func (w *roleWriter) writeBool(step Step, path, name string, value bool) {
	var n int32
	if value {
		n = 1
	}
	w.writeInt(step, path, name, n)
}

func (w *roleWriter) writeString(step Step, path, name, value string) {
	if w.err != nil {
		return
	}
	if err := w.store.WriteString(w.ctx, path, name, value); err != nil {
		w.fail(step, err)
	}
}
