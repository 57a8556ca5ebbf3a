package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceCurrency anchors the currency support check.
const ReferenceCurrency Currency = "USD"

// ConversionSuccessful is the message carried by every successful conversion.
const ConversionSuccessful = "Conversion successful"

// Currency a currency code
type Currency string

// Amount a monetary amount
type Amount = decimal.Decimal

// Rate an exchange rate
type Rate = decimal.Decimal

// Rates maps currency codes to rates relative to some base currency
type Rates map[Currency]Rate

// RateTable is a snapshot of rates as returned by a rate source.
type RateTable struct {
	Base  Currency
	Date  string
	Rates Rates
}

// ConversionRequest asks for amount in From to be expressed in To.
// Amount must be positive.
type ConversionRequest struct {
	From   Currency `validate:"required"`
	To     Currency `validate:"required"`
	Amount Amount
}

// ConversionResult is the outcome of a successful conversion.
type ConversionResult struct {
	From            Currency
	To              Currency
	Amount          Amount
	ConvertedAmount Amount
	Rate            Rate
	Timestamp       time.Time
	Message         string
}

// ConvertedScale is the number of decimal places a converted amount is rounded to.
const ConvertedScale = 2

// ApplyRate multiplies amount by rate and rounds half away from zero to ConvertedScale places.
func ApplyRate(amount Amount, rate Rate) Amount {
	return amount.Mul(rate).Round(ConvertedScale)
}
