package finance

import (
	"testing"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(expected).String(), actual.String(), msgAndArgs...)
}

func TestCalculateSaleFinancials(t *testing.T) {
	tests := []struct {
		name       string
		input      SaleInput
		price      string
		fee        string
		profit     string
		commission string
		net        string
	}{
		{
			name:       "ministerial course at level one",
			input:      SaleInput{BasePrice: dec("50000"), DiscountAmount: dec("0"), PlatformFeeRate: dec("0.135"), CommissionRate: dec("0.15")},
			price:      "50000",
			fee:        "6750",
			profit:     "43250",
			commission: "6487.5",
			net:        "36762.5",
		},
		{
			name:       "flat discount",
			input:      SaleInput{BasePrice: dec("50000"), DiscountAmount: dec("10000"), PlatformFeeRate: dec("0.135"), CommissionRate: dec("0.2")},
			price:      "40000",
			fee:        "5400",
			profit:     "34600",
			commission: "6920",
			net:        "27680",
		},
		{
			name:       "discount larger than price clamps to zero",
			input:      SaleInput{BasePrice: dec("5000"), DiscountAmount: dec("8000"), PlatformFeeRate: dec("0.135"), CommissionRate: dec("0.33")},
			price:      "0",
			fee:        "0",
			profit:     "0",
			commission: "0",
			net:        "0",
		},
		{
			name:       "no seller commission",
			input:      SaleInput{BasePrice: dec("70000"), DiscountAmount: dec("0"), PlatformFeeRate: dec("0.135"), CommissionRate: dec("0")},
			price:      "70000",
			fee:        "9450",
			profit:     "60550",
			commission: "0",
			net:        "60550",
		},
		{
			name:       "half cent rounds away from zero at each step",
			input:      SaleInput{BasePrice: dec("100.10"), DiscountAmount: dec("0"), PlatformFeeRate: dec("0.05"), CommissionRate: dec("0.5")},
			price:      "100.1",
			fee:        "5.01",
			profit:     "95.09",
			commission: "47.55",
			net:        "47.54",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ValidateSaleInput(tt.input))

			got := CalculateSaleFinancials(tt.input)

			assertDecimal(t, tt.price, got.PriceAfterDiscount, "price after discount")
			assertDecimal(t, tt.fee, got.PlatformFee, "platform fee")
			assertDecimal(t, tt.profit, got.ProfitAfterPlatform, "profit after platform")
			assertDecimal(t, tt.commission, got.SellerCommission, "seller commission")
			assertDecimal(t, tt.net, got.NetProfit, "net profit")
		})
	}
}

func TestCalculateSaleFinancialsLineItemsAddUp(t *testing.T) {
	rates := []string{"0", "0.01", "0.135", "0.15", "0.2", "0.25", "0.333", "0.5", "1"}
	prices := []string{"0", "0.01", "999.99", "50000", "55000", "123456.78"}
	discounts := []string{"0", "0.5", "8000", "10000", "200000"}

	for _, p := range prices {
		for _, d := range discounts {
			for _, fr := range rates {
				for _, cr := range rates {
					got := CalculateSaleFinancials(SaleInput{
						BasePrice:       dec(p),
						DiscountAmount:  dec(d),
						PlatformFeeRate: dec(fr),
						CommissionRate:  dec(cr),
					})

					assert.False(t, got.PriceAfterDiscount.IsNegative())
					assert.True(t, got.PlatformFee.Add(got.ProfitAfterPlatform).Equal(got.PriceAfterDiscount),
						"fee + profit != price for %s/%s/%s/%s", p, d, fr, cr)
					assert.True(t, got.SellerCommission.Add(got.NetProfit).Equal(got.ProfitAfterPlatform),
						"commission + net != profit for %s/%s/%s/%s", p, d, fr, cr)
				}
			}
		}
	}
}

func TestValidateSaleInput(t *testing.T) {
	tests := []struct {
		name        string
		input       SaleInput
		expectedErr error
	}{
		{"negative base price", SaleInput{BasePrice: dec("-1"), PlatformFeeRate: dec("0.1"), CommissionRate: dec("0.1")}, ErrInvalidAmount},
		{"negative discount", SaleInput{BasePrice: dec("1"), DiscountAmount: dec("-1"), PlatformFeeRate: dec("0.1"), CommissionRate: dec("0.1")}, ErrInvalidAmount},
		{"fee rate above one", SaleInput{BasePrice: dec("1"), PlatformFeeRate: dec("1.01"), CommissionRate: dec("0.1")}, ErrInvalidRate},
		{"negative commission rate", SaleInput{BasePrice: dec("1"), PlatformFeeRate: dec("0.1"), CommissionRate: dec("-0.1")}, ErrInvalidRate},
		{"fee rate with five places", SaleInput{BasePrice: dec("1"), PlatformFeeRate: dec("0.13575"), CommissionRate: dec("0.1")}, ErrInvalidRate},
		{"valid edges", SaleInput{BasePrice: dec("0"), PlatformFeeRate: dec("1"), CommissionRate: dec("0")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSaleInput(tt.input)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestIsRate(t *testing.T) {
	assert.True(t, IsRate(dec("0")))
	assert.True(t, IsRate(dec("1")))
	assert.True(t, IsRate(dec("0.1358")))
	assert.True(t, IsRate(dec("0.13500000")))
	assert.False(t, IsRate(dec("0.13575")))
	assert.False(t, IsRate(dec("-0.0001")))
	assert.False(t, IsRate(dec("1.0001")))
}

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		name        string
		kind        models.DiscountType
		amount      string
		basePrice   string
		expected    string
		expectedErr error
	}{
		{"flat", models.DiscountTypeFlat, "10000", "50000", "10000", nil},
		{"flat above price is kept", models.DiscountTypeFlat, "80000", "50000", "80000", nil},
		{"percentage points", models.DiscountTypePercentage, "10", "55000", "5500", nil},
		{"fractional percentage rounds to cents", models.DiscountTypePercentage, "12.5", "999.99", "125", nil},
		{"percentage above hundred", models.DiscountTypePercentage, "101", "1000", "0", ErrInvalidPercentageAmount},
		{"negative amount", models.DiscountTypeFlat, "-5", "1000", "0", ErrInvalidAmount},
		{"unknown type", models.DiscountType("BOGO"), "5", "1000", "0", ErrUnknownDiscountType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscountAmount(tt.kind, dec(tt.amount), dec(tt.basePrice))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assertDecimal(t, tt.expected, got)
		})
	}
}
