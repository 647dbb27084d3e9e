package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// quote prices a single invoice document and prints the breakdown.
// Exit code 0 = priced, 1 = invalid invoice, 2 = other error.
func main() {
	file := flag.String("file", "-", "invoice JSON document, - for stdin")
	ratesFile := flag.String("rates", "", "optional YAML rate table")
	lang := flag.String("lang", "en", "BCP 47 tag used to format amounts")
	flag.Parse()

	engine, err := loadEngine(*ratesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote: %v\n", err)
		os.Exit(2)
	}
	inv, err := readInvoice(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote: %v\n", err)
		os.Exit(2)
	}
	q, err := engine.Quote(inv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		if errors.Is(err, pricing.ErrInvalidInvoice) {
			os.Exit(1)
		}
		os.Exit(2)
	}
	tag, err := language.Parse(*lang)
	if err != nil {
		tag = language.English
	}
	printQuote(os.Stdout, message.NewPrinter(tag), q)
}

type invoiceDocument struct {
	InvoiceID  string `json:"invoiceId"`
	CustomerID string `json:"customerId"`
	Country    string `json:"country"`
	Membership string `json:"membership"`
	Coupon     string `json:"coupon"`
	Items      []struct {
		SKU       string          `json:"sku"`
		Category  string          `json:"category"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
		Qty       int             `json:"qty"`
		Fragile   bool            `json:"fragile"`
	} `json:"items"`
}

func loadEngine(path string) (*pricing.Engine, error) {
	if path == "" {
		return pricing.NewDefaultEngine(), nil
	}
	rates, err := pricing.LoadRatesFile(path)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(rates)
}

func readInvoice(path string) (pricing.Invoice, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return pricing.Invoice{}, err
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}
	var doc invoiceDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return pricing.Invoice{}, fmt.Errorf("decode invoice: %w", err)
	}
	inv := pricing.Invoice{
		ID:         doc.InvoiceID,
		CustomerID: doc.CustomerID,
		Country:    doc.Country,
		Membership: doc.Membership,
		Coupon:     doc.Coupon,
	}
	for _, it := range doc.Items {
		if it.Qty <= 0 || it.UnitPrice.IsNegative() {
			return pricing.Invoice{}, fmt.Errorf("item %q: qty must be positive and price non-negative", it.SKU)
		}
		inv.Items = append(inv.Items, pricing.LineItem{
			SKU:       it.SKU,
			Category:  it.Category,
			UnitPrice: it.UnitPrice,
			Qty:       it.Qty,
			Fragile:   it.Fragile,
		})
	}
	return inv, nil
}

func printQuote(w io.Writer, p *message.Printer, q pricing.Quote) {
	amount := func(d decimal.Decimal) string { return formatAmount(p, d) }
	fmt.Fprintf(w, "invoice      %s\n", q.InvoiceID)
	fmt.Fprintf(w, "subtotal     %s\n", amount(q.Subtotal))
	fmt.Fprintf(w, "fragile fee  %s\n", amount(q.FragileFee))
	fmt.Fprintf(w, "shipping     %s\n", amount(q.Shipping))
	fmt.Fprintf(w, "discount     -%s\n", amount(q.Discount))
	fmt.Fprintf(w, "tax (%s)  %s\n", q.TaxRate.String(), amount(q.Tax))
	fmt.Fprintf(w, "total        %s\n", amount(q.Total))
	for _, warning := range q.Warnings {
		fmt.Fprintf(w, "warning      %s\n", warning)
	}
}

// formatAmount renders d with two decimals in the printer's locale. The digits
// come from the decimal itself; only the integer part goes through the printer
// for grouping.
func formatAmount(p *message.Printer, d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if rest, ok := strings.CutPrefix(fixed, "-"); ok {
		sign, fixed = "-", rest
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = p.Sprintf("%d", n)
	}
	return sign + whole + decimalSeparator(p) + frac
}

func decimalSeparator(p *message.Printer) string {
	if r := []rune(p.Sprintf("%.1f", 1.5)); len(r) == 3 {
		return string(r[1])
	}
	return "."
}
