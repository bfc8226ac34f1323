//go:build !windows

package registry

// Native returns ErrUnsupported outside Windows; use the emulated store.
func Native() (Store, error) {
	return nil, ErrUnsupported
}
