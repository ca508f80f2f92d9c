package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
)

func TestConvertToUsd(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		price  int64 // 8 fractional digits
		amount *big.Int
		want   *big.Int
	}{
		{"one unit at 3000 USD", 3000_0000_0000, units(1), units(3000)},
		{"half unit at 3000 USD", 3000_0000_0000, tenthUnits(5), units(1500)},
		{"sub-dollar price", 50_000_000, units(2), units(1)}, // 0.5 USD each
		{"zero amount", 3000_0000_0000, new(big.Int), new(big.Int)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := NewPriceOracleAdapter()
			oracle.Register(domain.MediumNative, newFixedPrice(tc.price))

			usd, err := oracle.ConvertToUsd(ctx, tc.amount, domain.MediumNative)
			require.NoError(t, err)
			assert.Equal(t, tc.want.String(), usd.String())
		})
	}
}

func TestConvertToUsdUnavailable(t *testing.T) {
	oracle := NewPriceOracleAdapter()
	_, err := oracle.ConvertToUsd(context.Background(), units(1), domain.MediumNative)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}

func TestConvertToUsdInvalidPrice(t *testing.T) {
	ctx := context.Background()

	for _, price := range []int64{0, -1} {
		oracle := NewPriceOracleAdapter()
		oracle.Register(domain.MediumNative, newFixedPrice(price))

		_, err := oracle.ConvertToUsd(ctx, units(1), domain.MediumNative)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	}
}

func TestRegisterReplacesSource(t *testing.T) {
	ctx := context.Background()

	oracle := NewPriceOracleAdapter()
	oracle.Register(domain.MediumNative, newFixedPrice(1000_0000_0000))
	oracle.Register(domain.MediumNative, newFixedPrice(2000_0000_0000))

	usd, err := oracle.ConvertToUsd(ctx, units(1), domain.MediumNative)
	require.NoError(t, err)
	assert.Equal(t, units(2000), usd)
}

func TestUsdText(t *testing.T) {
	assert.Equal(t, "3000", UsdText(units(3000)))
	assert.Equal(t, "0.5", UsdText(tenthUnits(5)))
	assert.Equal(t, "1500.25", UsdText(new(big.Int).Add(units(1500), new(big.Int).Quo(unit, big.NewInt(4)))))
	assert.Equal(t, "0", UsdText(new(big.Int)))
	assert.Equal(t, "", UsdText(nil))
}
