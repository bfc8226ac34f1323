package store

import (
	"database/sql"

	"github.com/woa-project/usbfnswitch/internal/registry"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStringPair(scanner rowScanner) (string, string, error) {
	var first, second string
	err := scanner.Scan(&first, &second)
	return first, second, err
}

func scanRoleSwitch(scanner rowScanner) (RoleSwitch, error) {
	var (
		sw       RoleSwitch
		errorMsg sql.NullString
	)
	if err := scanner.Scan(
		&sw.ID,
		&sw.Backend,
		&sw.FromRole,
		&sw.ToRole,
		&sw.Outcome,
		&errorMsg,
		&sw.CreatedAt,
	); err != nil {
		return RoleSwitch{}, err
	}
	if errorMsg.Valid {
		sw.Error = errorMsg.String
	}
	return sw, nil
}

func scanRegistryValue(scanner rowScanner) (registry.Value, error) {
	var (
		name     string
		kind     string
		intValue sql.NullInt64
		strValue sql.NullString
	)
	if err := scanner.Scan(&name, &kind, &intValue, &strValue); err != nil {
		return registry.Value{}, err
	}

	value := registry.Value{Name: name, Kind: registry.Kind(kind)}
	switch value.Kind {
	case registry.KindDWord:
		value.Int = int32(intValue.Int64)
	case registry.KindString:
		value.String = strValue.String
	case registry.KindMultiSZ:
		strs, err := decodeMultiString(strValue)
		if err != nil {
			return registry.Value{}, err
		}
		value.Strings = strs
	}
	return value, nil
}
