package pricing

import "github.com/shopspring/decimal"

// LineItem is one purchased product line.
type LineItem struct {
	SKU       string
	Category  string
	UnitPrice decimal.Decimal
	Qty       int
	Fragile   bool
}

// Invoice describes a single pricing request.
type Invoice struct {
	ID         string
	CustomerID string
	Country    string
	Membership string
	Coupon     string
	Items      []LineItem
}

// Quote is the full breakdown of a priced invoice. Only Total is rounded.
type Quote struct {
	InvoiceID  string
	Subtotal   decimal.Decimal
	FragileFee decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	TaxRate    decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Warnings   []string
}
