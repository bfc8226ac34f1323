package usbrole

import (
	"context"
	"fmt"

	"github.com/woa-project/usbfnswitch/internal/constants"
	"github.com/woa-project/usbfnswitch/internal/registry"
)

// Polarity values of the USB Type-C port. Flipping it lets a cable be used
// in the other orientation.
const (
	PolarityNormal   int32 = 0
	PolarityReversed int32 = 1
)

// Polarity reads the configured USB Type-C polarity. An absent value reads
// as PolarityNormal.
func Polarity(ctx context.Context, store registry.Store) (int32, error) {
	hasUSBC, err := HasUSBC(ctx, store)
	if err != nil {
		return 0, err
	}
	if !hasUSBC {
		return 0, ErrNoUSBC
	}

	v, err := store.ReadInt(ctx, constants.KeyUSBC, constants.ValuePolarity)
	switch {
	case registry.IsValueAbsent(err):
		return PolarityNormal, nil
	case err != nil:
		return 0, fmt.Errorf("usbrole: read polarity: %w", err)
	}
	return v, nil
}

// SetPolarity writes the USB Type-C polarity. The change applies after a reboot.
func SetPolarity(ctx context.Context, store registry.Store, polarity int32) error {
	if polarity != PolarityNormal && polarity != PolarityReversed {
		return fmt.Errorf("usbrole: invalid polarity %d", polarity)
	}
	hasUSBC, err := HasUSBC(ctx, store)
	if err != nil {
		return err
	}
	if !hasUSBC {
		return ErrNoUSBC
	}
	if err := store.WriteInt(ctx, constants.KeyUSBC, constants.ValuePolarity, polarity); err != nil {
		return fmt.Errorf("usbrole: write polarity: %w", err)
	}
	return nil
}
