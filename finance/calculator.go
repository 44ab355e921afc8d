package finance

import (
	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
)

// SaleInput carries everything the calculator needs for one sale
type SaleInput struct {
	BasePrice       decimal.Decimal
	DiscountAmount  decimal.Decimal
	PlatformFeeRate decimal.Decimal
	CommissionRate  decimal.Decimal
}

// SaleFinancials are the derived money facts of a sale, each a valid currency amount
type SaleFinancials struct {
	PriceAfterDiscount  decimal.Decimal
	PlatformFee         decimal.Decimal
	ProfitAfterPlatform decimal.Decimal
	SellerCommission    decimal.Decimal
	NetProfit           decimal.Decimal
}

// ValidateSaleInput rejects negative amounts and rates outside [0, 1]
func ValidateSaleInput(in SaleInput) error {
	if in.BasePrice.IsNegative() || in.DiscountAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !IsRate(in.PlatformFeeRate) || !IsRate(in.CommissionRate) {
		return ErrInvalidRate
	}
	return nil
}

// CalculateSaleFinancials derives fee, commission and net profit, rounding each step to cents.
// Commission is taken from profit after the platform fee, not from revenue.
func CalculateSaleFinancials(in SaleInput) SaleFinancials {
	price := in.BasePrice.Sub(in.DiscountAmount)
	if price.IsNegative() {
		price = decimal.Zero
	}
	price = Round2(price)

	fee := Round2(price.Mul(in.PlatformFeeRate))
	profit := Round2(price.Sub(fee))
	commission := Round2(profit.Mul(in.CommissionRate))
	net := Round2(profit.Sub(commission))

	return SaleFinancials{
		PriceAfterDiscount:  price,
		PlatformFee:         fee,
		ProfitAfterPlatform: profit,
		SellerCommission:    commission,
		NetProfit:           net,
	}
}

// DiscountAmount resolves a discount against a base price.
// FLAT discounts are currency, PERCENTAGE discounts are percentage points of the base price.
func DiscountAmount(kind models.DiscountType, amount, basePrice decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	switch kind {
	case models.DiscountTypeFlat:
		return Round2(amount), nil
	case models.DiscountTypePercentage:
		if amount.GreaterThan(hundred) {
			return decimal.Zero, ErrInvalidPercentageAmount
		}
		return Round2(amount.Div(hundred).Mul(basePrice)), nil
	default:
		return decimal.Zero, ErrUnknownDiscountType
	}
}
