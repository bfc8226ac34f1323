package usbrole

import (
	"context"
	"errors"
	"testing"

	"github.com/woa-project/usbfnswitch/internal/testutil"
)

func TestPolarity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := testutil.OpenRegistry(t, "keys:\n  - path: SYSTEM\\usbc\n")

	got, err := Polarity(ctx, reg)
	if err != nil || got != PolarityNormal {
		t.Fatalf("Polarity with no value = %d, %v; want %d", got, err, PolarityNormal)
	}

	if err := SetPolarity(ctx, reg, PolarityReversed); err != nil {
		t.Fatalf("SetPolarity: %v", err)
	}
	got, err = Polarity(ctx, reg)
	if err != nil || got != PolarityReversed {
		t.Fatalf("Polarity = %d, %v; want %d", got, err, PolarityReversed)
	}

	if err := SetPolarity(ctx, reg, 2); err == nil {
		t.Fatal("expected invalid polarity to be rejected")
	}
}

func TestPolarityRequiresUSBC(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := testutil.OpenProfile(t, "microusb")

	if _, err := Polarity(ctx, reg); !errors.Is(err, ErrNoUSBC) {
		t.Fatalf("Polarity = %v, want ErrNoUSBC", err)
	}
	if err := SetPolarity(ctx, reg, PolarityNormal); !errors.Is(err, ErrNoUSBC) {
		t.Fatalf("SetPolarity = %v, want ErrNoUSBC", err)
	}
}
