package usbrole

import (
	"context"
	"sync"
	"testing"

	configstore "github.com/woa-project/usbfnswitch/internal/config/store"
	"github.com/woa-project/usbfnswitch/internal/registry"
	"github.com/woa-project/usbfnswitch/internal/testutil"
)

const configurations = `
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\Default
    values:
      - name: InterfaceList
        multi: [MTP, IpOverUsb]
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\RetailConfig
    values:
      - name: InterfaceList
        multi: [MTP, NCSI, VidStream]
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\SerialCompositeConfig
    values:
      - name: InterfaceList
        multi: [DIAG, Serial]
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\VidStream
    values:
      - name: InterfaceList
        multi: [VidStream]
  - path: SYSTEM\CurrentControlSet\Control\USBFN\Configurations\MyConfig
    values:
      - name: InterfaceList
        multi: [DIAG]
`

const functionValues = `
  - path: SYSTEM\CurrentControlSet\Control\USBFN
    values:
      - name: CurrentConfiguration
        string: RetailConfig
      - name: IncludeDefaultCfg
        dword: 1
      - name: idVendor
        dword: 0x045E
      - name: idProduct
        dword: 0x0A00
  - path: SYSTEM\CurrentControlSet\Services\QCDIAGROUTER
    values:
      - name: TransportType
        dword: 0
  - path: SYSTEM\CurrentControlSet\Services\ufnserialclass
`

// usbcDevice is in the retail function role.
const usbcDevice = `
keys:
  - path: SYSTEM\usbc
  - path: SYSTEM\CurrentControlSet\Control\USB
    values:
      - name: OSDefaultRoleSwitchMode
        dword: 2
` + functionValues + configurations

// microUSBDevice has no USB Type-C controller. Its role switch mode claims
// host to show that the value is ignored.
const microUSBDevice = `
keys:
  - path: SYSTEM\CurrentControlSet\Control\USB
    values:
      - name: OSDefaultRoleSwitchMode
        dword: 6
` + functionValues + configurations

type testEnv struct {
	ctx context.Context
	h   *Handler
	reg *configstore.EmulatedRegistry
	rec *recordingStore
}

func newTestEnv(t *testing.T, doc string) *testEnv {
	t.Helper()
	ctx := context.Background()
	reg := testutil.OpenRegistry(t, doc)
	rec := &recordingStore{Store: reg}
	h, err := NewHandler(ctx, rec)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	rec.reset()
	return &testEnv{ctx: ctx, h: h, reg: reg, rec: rec}
}

// current returns the key of the current role, or "unknown".
func (e *testEnv) current(t *testing.T) string {
	t.Helper()
	role, ok, err := e.h.CurrentRole(e.ctx)
	if err != nil {
		t.Fatalf("CurrentRole: %v", err)
	}
	if !ok {
		return "unknown"
	}
	return role.Key()
}

func (e *testEnv) readInt(t *testing.T, path, name string) int32 {
	t.Helper()
	v, err := e.reg.ReadInt(e.ctx, path, name)
	if err != nil {
		t.Fatalf("read %s\\%s: %v", path, name, err)
	}
	return v
}

func mustLookup(t *testing.T, h *Handler, arg string) Role {
	t.Helper()
	role, ok := h.Lookup(arg)
	if !ok {
		t.Fatalf("role %q not found", arg)
	}
	return role
}

// recordingStore logs the value names read and written through it.
type recordingStore struct {
	registry.Store

	mu     sync.Mutex
	reads  []string
	writes []string
}

func (s *recordingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = nil
	s.writes = nil
}

func (s *recordingStore) read(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, name)
}

func (s *recordingStore) write(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, name)
}

func (s *recordingStore) readNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

func (s *recordingStore) writeNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *recordingStore) ReadInt(ctx context.Context, path, name string) (int32, error) {
	s.read(name)
	return s.Store.ReadInt(ctx, path, name)
}

func (s *recordingStore) ReadString(ctx context.Context, path, name string) (string, error) {
	s.read(name)
	return s.Store.ReadString(ctx, path, name)
}

func (s *recordingStore) ReadStrings(ctx context.Context, path, name string) ([]string, error) {
	s.read(name)
	return s.Store.ReadStrings(ctx, path, name)
}

func (s *recordingStore) WriteInt(ctx context.Context, path, name string, value int32) error {
	s.write(name)
	return s.Store.WriteInt(ctx, path, name, value)
}

func (s *recordingStore) WriteString(ctx context.Context, path, name, value string) error {
	s.write(name)
	return s.Store.WriteString(ctx, path, name, value)
}
