//go:build windows

package registry

import (
	"context"
	"errors"

	"golang.org/x/sys/windows"
	winreg "golang.org/x/sys/windows/registry"
)

// nativeStore talks to HKEY_LOCAL_MACHINE. Every operation opens the key it
// needs and closes it before returning.
type nativeStore struct {
	root winreg.Key
}

// Native returns the HKEY_LOCAL_MACHINE-backed store.
func Native() (Store, error) {
	return &nativeStore{root: winreg.LOCAL_MACHINE}, nil
}

func (s *nativeStore) open(path string, access uint32) (winreg.Key, error) {
	k, err := winreg.OpenKey(s.root, Clean(path), access)
	if err != nil {
		return 0, translate(err, path, "")
	}
	return k, nil
}

func (s *nativeStore) KeyExists(_ context.Context, path string) (bool, error) {
	k, err := s.open(path, winreg.QUERY_VALUE)
	if err != nil {
		if IsKeyAbsent(err) {
			return false, nil
		}
		return false, err
	}
	k.Close()
	return true, nil
}

func (s *nativeStore) SubKeys(_ context.Context, path string) ([]string, error) {
	k, err := s.open(path, winreg.ENUMERATE_SUB_KEYS|winreg.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, translate(err, path, "")
	}
	return names, nil
}

func (s *nativeStore) ReadInt(_ context.Context, path, name string) (int32, error) {
	k, err := s.open(path, winreg.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer k.Close()

	v, valtype, err := k.GetIntegerValue(name)
	if err != nil {
		if errors.Is(err, winreg.ErrUnexpectedType) {
			return 0, &TypeError{Path: path, Name: name, Want: KindDWord, Got: kindOf(valtype)}
		}
		return 0, translate(err, path, name)
	}
	return int32(uint32(v)), nil
}

func (s *nativeStore) ReadString(_ context.Context, path, name string) (string, error) {
	k, err := s.open(path, winreg.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	v, valtype, err := k.GetStringValue(name)
	if err != nil {
		if errors.Is(err, winreg.ErrUnexpectedType) {
			return "", &TypeError{Path: path, Name: name, Want: KindString, Got: kindOf(valtype)}
		}
		return "", translate(err, path, name)
	}
	return v, nil
}

func (s *nativeStore) ReadStrings(_ context.Context, path, name string) ([]string, error) {
	k, err := s.open(path, winreg.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	v, valtype, err := k.GetStringsValue(name)
	if err != nil {
		if errors.Is(err, winreg.ErrUnexpectedType) {
			return nil, &TypeError{Path: path, Name: name, Want: KindMultiSZ, Got: kindOf(valtype)}
		}
		return nil, translate(err, path, name)
	}
	return v, nil
}

func (s *nativeStore) WriteInt(_ context.Context, path, name string, value int32) error {
	k, err := s.open(path, winreg.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.SetDWordValue(name, uint32(value)); err != nil {
		return translate(err, path, name)
	}
	return nil
}

func (s *nativeStore) WriteString(_ context.Context, path, name, value string) error {
	k, err := s.open(path, winreg.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.SetStringValue(name, value); err != nil {
		return translate(err, path, name)
	}
	return nil
}

func (s *nativeStore) WriteStrings(_ context.Context, path, name string, value []string) error {
	k, err := s.open(path, winreg.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.SetStringsValue(name, value); err != nil {
		return translate(err, path, name)
	}
	return nil
}

func (s *nativeStore) CreateKey(_ context.Context, path string) error {
	k, _, err := winreg.CreateKey(s.root, Clean(path), winreg.CREATE_SUB_KEY|winreg.SET_VALUE)
	if err != nil {
		return translate(err, path, "")
	}
	return k.Close()
}

func translate(err error, path, name string) error {
	switch {
	case errors.Is(err, winreg.ErrNotExist):
		return &NotFoundError{Path: path, Name: name}
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return &AccessDeniedError{Path: path, Name: name, Err: err}
	default:
		return err
	}
}

func kindOf(valtype uint32) Kind {
	switch valtype {
	case winreg.DWORD, winreg.QWORD:
		return KindDWord
	case winreg.SZ:
		return KindString
	case winreg.EXPAND_SZ:
		return KindExpandSZ
	case winreg.MULTI_SZ:
		return KindMultiSZ
	default:
		return KindNone
	}
}
