package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine prices invoices against a fixed set of rate tables. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	rates Rates
	tiers []tierRule
}

// NewEngine validates rates and builds an engine over a private copy of them.
func NewEngine(rates Rates) (*Engine, error) {
	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("pricing rates: %w", err)
	}
	owned := rates.clone()
	return &Engine{rates: owned, tiers: buildTierRules(owned)}, nil
}

// NewDefaultEngine builds an engine over DefaultRates.
func NewDefaultEngine() *Engine {
	e, err := NewEngine(DefaultRates())
	if err != nil {
		panic(err)
	}
	return e
}

// Rates returns a copy of the tables the engine was built with.
func (e *Engine) Rates() Rates {
	return e.rates.clone()
}

// ComputeTotal returns the payable total rounded to two decimals along with
// advisory warnings. The only error is a *ValidationError.
func (e *Engine) ComputeTotal(inv Invoice) (decimal.Decimal, []string, error) {
	q, err := e.Quote(inv)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return q.Total, q.Warnings, nil
}

// Quote prices inv and returns every intermediate amount.
func (e *Engine) Quote(inv Invoice) (Quote, error) {
	if problems := Validate(inv); len(problems) > 0 {
		return Quote{}, &ValidationError{Problems: problems}
	}

	subtotal := decimal.Zero
	var fragileUnits int64
	for _, it := range inv.Items {
		qty := int64(it.Qty)
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(qty)))
		if it.Fragile {
			fragileUnits += qty
		}
	}
	fragileFee := e.rates.FragileFeePerUnit.Mul(decimal.NewFromInt(fragileUnits))

	shipping := e.ShippingFee(inv.Country, subtotal)
	discount, couponWarning := e.Discount(inv, subtotal)
	taxRate := e.TaxRate(inv.Country)
	// A discount larger than the subtotal yields negative tax.
	tax := subtotal.Sub(discount).Mul(taxRate)

	total := subtotal.Add(shipping).Add(fragileFee).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	warnings := make([]string, 0, 2)
	if couponWarning != "" {
		warnings = append(warnings, couponWarning)
	}
	if subtotal.GreaterThan(e.rates.UpsellThreshold) && !e.IsMember(inv.Membership) {
		warnings = append(warnings, WarningMembershipUpgrade)
	}

	return Quote{
		InvoiceID:  inv.ID,
		Subtotal:   subtotal,
		FragileFee: fragileFee,
		Shipping:   shipping,
		Discount:   discount,
		TaxRate:    taxRate,
		Tax:        tax,
		Total:      total.Round(2),
		Warnings:   warnings,
	}, nil
}
