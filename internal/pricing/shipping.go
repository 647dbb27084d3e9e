package pricing

import "github.com/shopspring/decimal"

// ShippingFee returns the fee for delivering a subtotal to country. Countries
// without their own schedule use the default schedule.
func (e *Engine) ShippingFee(country string, subtotal decimal.Decimal) decimal.Decimal {
	schedule, ok := e.rates.Shipping[country]
	if !ok {
		schedule = e.rates.DefaultShipping
	}
	return schedule.Fee(subtotal)
}

// TaxRate returns the tax rate for country, falling back to the default rate.
func (e *Engine) TaxRate(country string) decimal.Decimal {
	if rate, ok := e.rates.TaxRates[country]; ok {
		return rate
	}
	return e.rates.DefaultTaxRate
}

// HasRegion reports whether country has its own tax rate or shipping schedule.
func (e *Engine) HasRegion(country string) bool {
	if _, ok := e.rates.TaxRates[country]; ok {
		return true
	}
	_, ok := e.rates.Shipping[country]
	return ok
}
