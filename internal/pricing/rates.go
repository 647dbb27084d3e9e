package pricing

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultRegion keys the fallback entries of the tax and shipping tables in rate files.
const DefaultRegion = "DEFAULT"

// ShippingTier charges Fee when the subtotal is strictly below Below.
type ShippingTier struct {
	Below decimal.Decimal
	Fee   decimal.Decimal
}

// ShippingSchedule is evaluated in order; the first matching tier wins and a
// subtotal past every tier ships free.
type ShippingSchedule []ShippingTier

// Fee returns the shipping fee for subtotal.
func (s ShippingSchedule) Fee(subtotal decimal.Decimal) decimal.Decimal {
	for _, tier := range s {
		if subtotal.LessThan(tier.Below) {
			return tier.Fee
		}
	}
	return decimal.Zero
}

// VolumeDiscount is the flat amount granted to non-members above Threshold.
type VolumeDiscount struct {
	Threshold decimal.Decimal
	Amount    decimal.Decimal
}

// Rates holds every table the engine prices with.
type Rates struct {
	Coupons           map[string]decimal.Decimal
	TaxRates          map[string]decimal.Decimal
	DefaultTaxRate    decimal.Decimal
	Memberships       map[string]decimal.Decimal
	Shipping          map[string]ShippingSchedule
	DefaultShipping   ShippingSchedule
	Volume            VolumeDiscount
	FragileFeePerUnit decimal.Decimal
	UpsellThreshold   decimal.Decimal
}

// DefaultRates returns a fresh copy of the built-in tables.
func DefaultRates() Rates {
	return Rates{
		Coupons: map[string]decimal.Decimal{
			"WELCOME10": decimal.RequireFromString("0.10"),
			"VIP20":     decimal.RequireFromString("0.20"),
			"STUDENT5":  decimal.RequireFromString("0.05"),
		},
		TaxRates: map[string]decimal.Decimal{
			"TH": decimal.RequireFromString("0.07"),
			"JP": decimal.RequireFromString("0.10"),
			"US": decimal.RequireFromString("0.08"),
		},
		DefaultTaxRate: decimal.RequireFromString("0.05"),
		Memberships: map[string]decimal.Decimal{
			"gold":     decimal.RequireFromString("0.03"),
			"platinum": decimal.RequireFromString("0.05"),
		},
		Shipping: map[string]ShippingSchedule{
			"TH": {tier(500, 60)},
			"JP": {tier(4000, 600)},
			"US": {tier(100, 15), tier(300, 8)},
		},
		DefaultShipping:   ShippingSchedule{tier(200, 25)},
		Volume:            VolumeDiscount{Threshold: decimal.NewFromInt(3000), Amount: decimal.NewFromInt(20)},
		FragileFeePerUnit: decimal.NewFromInt(5),
		UpsellThreshold:   decimal.NewFromInt(10000),
	}
}

func tier(below, fee int64) ShippingTier {
	return ShippingTier{Below: decimal.NewFromInt(below), Fee: decimal.NewFromInt(fee)}
}

// Validate checks that no rate or fee is negative and that shipping tiers ascend.
func (r Rates) Validate() error {
	var errs []error
	checkTable := func(name string, table map[string]decimal.Decimal) {
		for _, key := range slices.Sorted(maps.Keys(table)) {
			if strings.TrimSpace(key) == "" {
				errs = append(errs, fmt.Errorf("%s: empty key", name))
			}
			if table[key].IsNegative() {
				errs = append(errs, fmt.Errorf("%s[%s]: negative rate %s", name, key, table[key]))
			}
		}
	}
	checkTable("coupons", r.Coupons)
	checkTable("tax", r.TaxRates)
	checkTable("membership", r.Memberships)
	if r.DefaultTaxRate.IsNegative() {
		errs = append(errs, fmt.Errorf("tax[%s]: negative rate %s", DefaultRegion, r.DefaultTaxRate))
	}
	for _, country := range slices.Sorted(maps.Keys(r.Shipping)) {
		if err := r.Shipping[country].validate(); err != nil {
			errs = append(errs, fmt.Errorf("shipping[%s]: %w", country, err))
		}
	}
	if err := r.DefaultShipping.validate(); err != nil {
		errs = append(errs, fmt.Errorf("shipping[%s]: %w", DefaultRegion, err))
	}
	if r.Volume.Threshold.IsNegative() || r.Volume.Amount.IsNegative() {
		errs = append(errs, errors.New("volume: negative threshold or amount"))
	}
	if r.FragileFeePerUnit.IsNegative() {
		errs = append(errs, errors.New("fragile fee: negative amount"))
	}
	if r.UpsellThreshold.IsNegative() {
		errs = append(errs, errors.New("upsell threshold: negative amount"))
	}
	return errors.Join(errs...)
}

func (s ShippingSchedule) validate() error {
	for i, t := range s {
		if t.Fee.IsNegative() {
			return fmt.Errorf("tier %d: negative fee %s", i, t.Fee)
		}
		if i > 0 && !t.Below.GreaterThan(s[i-1].Below) {
			return fmt.Errorf("tier %d: threshold %s does not ascend", i, t.Below)
		}
	}
	return nil
}

func (r Rates) clone() Rates {
	out := r
	out.Coupons = maps.Clone(r.Coupons)
	out.TaxRates = maps.Clone(r.TaxRates)
	out.Memberships = maps.Clone(r.Memberships)
	out.Shipping = make(map[string]ShippingSchedule, len(r.Shipping))
	for country, schedule := range r.Shipping {
		out.Shipping[country] = slices.Clone(schedule)
	}
	out.DefaultShipping = slices.Clone(r.DefaultShipping)
	return out
}

// rateValue decodes a YAML scalar without going through float64.
type rateValue struct {
	decimal.Decimal
}

func (v *rateValue) UnmarshalYAML(node *yaml.Node) error {
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", node.Line, node.Value)
	}
	v.Decimal = d
	return nil
}

type tierFile struct {
	Below rateValue `yaml:"below"`
	Fee   rateValue `yaml:"fee"`
}

type ratesFile struct {
	Coupons    map[string]rateValue  `yaml:"coupons"`
	Tax        map[string]rateValue  `yaml:"tax"`
	Membership map[string]rateValue  `yaml:"membership"`
	Shipping   map[string][]tierFile `yaml:"shipping"`
	Volume     *struct {
		Threshold rateValue `yaml:"threshold"`
		Amount    rateValue `yaml:"amount"`
	} `yaml:"volume"`
	FragileFeePerUnit *rateValue `yaml:"fragile_fee_per_unit"`
	UpsellThreshold   *rateValue `yaml:"upsell_threshold"`
}

// ParseRates reads a YAML rate document. Every section present replaces the
// matching default table as a whole; absent sections keep the defaults.
func ParseRates(data []byte) (Rates, error) {
	var doc ratesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Rates{}, fmt.Errorf("decode rates: %w", err)
	}
	rates := DefaultRates()
	if doc.Coupons != nil {
		rates.Coupons = decimals(doc.Coupons)
	}
	if doc.Tax != nil {
		table := decimals(doc.Tax)
		if def, ok := table[DefaultRegion]; ok {
			rates.DefaultTaxRate = def
			delete(table, DefaultRegion)
		}
		rates.TaxRates = table
	}
	if doc.Membership != nil {
		rates.Memberships = decimals(doc.Membership)
	}
	if doc.Shipping != nil {
		rates.Shipping = make(map[string]ShippingSchedule, len(doc.Shipping))
		for country, tiers := range doc.Shipping {
			schedule := make(ShippingSchedule, 0, len(tiers))
			for _, t := range tiers {
				schedule = append(schedule, ShippingTier{Below: t.Below.Decimal, Fee: t.Fee.Decimal})
			}
			if country == DefaultRegion {
				rates.DefaultShipping = schedule
				continue
			}
			rates.Shipping[country] = schedule
		}
	}
	if doc.Volume != nil {
		rates.Volume = VolumeDiscount{Threshold: doc.Volume.Threshold.Decimal, Amount: doc.Volume.Amount.Decimal}
	}
	if doc.FragileFeePerUnit != nil {
		rates.FragileFeePerUnit = doc.FragileFeePerUnit.Decimal
	}
	if doc.UpsellThreshold != nil {
		rates.UpsellThreshold = doc.UpsellThreshold.Decimal
	}
	if err := rates.Validate(); err != nil {
		return Rates{}, fmt.Errorf("validate rates: %w", err)
	}
	return rates, nil
}

// LoadRatesFile parses the YAML rate document at path.
func LoadRatesFile(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rates{}, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRates(data)
}

func decimals(in map[string]rateValue) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v.Decimal
	}
	return out
}
