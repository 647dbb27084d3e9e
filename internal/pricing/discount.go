package pricing

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	WarningUnknownCoupon     = "Unknown coupon"
	WarningMembershipUpgrade = "Consider membership upgrade"
)

// tierRule is one branch of the membership/volume discount. Rules are tried in
// order and only the first match applies.
type tierRule struct {
	matches func(inv Invoice, subtotal decimal.Decimal) bool
	amount  func(subtotal decimal.Decimal) decimal.Decimal
}

func buildTierRules(rates Rates) []tierRule {
	rules := make([]tierRule, 0, len(rates.Memberships)+1)
	for _, membership := range slices.Sorted(maps.Keys(rates.Memberships)) {
		rate := rates.Memberships[membership]
		rules = append(rules, tierRule{
			matches: func(inv Invoice, _ decimal.Decimal) bool { return inv.Membership == membership },
			amount:  func(subtotal decimal.Decimal) decimal.Decimal { return subtotal.Mul(rate) },
		})
	}
	volume := rates.Volume
	rules = append(rules, tierRule{
		matches: func(_ Invoice, subtotal decimal.Decimal) bool { return subtotal.GreaterThan(volume.Threshold) },
		amount:  func(decimal.Decimal) decimal.Decimal { return volume.Amount },
	})
	return rules
}

// Discount returns the combined tier and coupon discount for inv. The second
// result is WarningUnknownCoupon when the coupon is not recognised, else empty.
func (e *Engine) Discount(inv Invoice, subtotal decimal.Decimal) (decimal.Decimal, string) {
	discount := decimal.Zero
	for _, rule := range e.tiers {
		if rule.matches(inv, subtotal) {
			discount = discount.Add(rule.amount(subtotal))
			break
		}
	}

	code := strings.TrimSpace(inv.Coupon)
	if code == "" {
		return discount, ""
	}
	rate, ok := e.rates.Coupons[code]
	if !ok {
		return discount, WarningUnknownCoupon
	}
	return discount.Add(subtotal.Mul(rate)), ""
}

// IsMember reports whether membership earns a membership discount.
func (e *Engine) IsMember(membership string) bool {
	_, ok := e.rates.Memberships[membership]
	return ok
}
