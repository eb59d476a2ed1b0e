// Package core holds the domain model shared by storage, services and the
// CLI: catalog entities, baskets, the price ledger and the inflation index.
package core

import "github.com/shopspring/decimal"

// Effective returns the price used for inflation math: the promotional
// price when one was captured with the observation, else the regular price.
func (o PriceObservation) Effective() decimal.Decimal {
	if o.PromoPrice != nil {
		return *o.PromoPrice
	}
	return o.Price
}

// RoundMoney rounds to two decimal places, half away from zero. All reported
// percentages and index values go through this exactly once; intermediate
// totals stay exact.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var hundred = decimal.NewFromInt(100)

// IndexValue converts base and current totals to a 100-based index value,
// rounded to two decimal places. The caller must guard against a zero base.
func IndexValue(baseTotal, currentTotal decimal.Decimal) decimal.Decimal {
	return RoundMoney(currentTotal.Div(baseTotal).Mul(hundred))
}

// InflationPercentage is the percentage change from baseTotal to
// currentTotal, rounded to two decimal places. The caller must guard against
// a zero base.
func InflationPercentage(baseTotal, currentTotal decimal.Decimal) decimal.Decimal {
	return RoundMoney(currentTotal.Sub(baseTotal).Div(baseTotal).Mul(hundred))
}
