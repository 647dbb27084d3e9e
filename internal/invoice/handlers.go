package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// Handler exposes invoice pricing endpoints.
type Handler struct {
	Svc      *Service
	validate *validator.Validate
}

// NewHandler wires a handler around svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

type quoteRequest struct {
	InvoiceID  string             `json:"invoiceId" validate:"max=64"`
	CustomerID string             `json:"customerId" validate:"max=64"`
	Country    string             `json:"country" validate:"max=8"`
	Membership string             `json:"membership" validate:"max=32"`
	Coupon     string             `json:"coupon" validate:"max=64"`
	Items      []quoteRequestItem `json:"items" validate:"max=500,dive"`
}

type quoteRequestItem struct {
	SKU       string          `json:"sku" validate:"required,max=64"`
	Category  string          `json:"category" validate:"max=64"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Qty       int             `json:"qty" validate:"min=1"`
	Fragile   bool            `json:"fragile"`
}

func (r quoteRequest) toInvoice() pricing.Invoice {
	items := make([]pricing.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, pricing.LineItem{
			SKU:       it.SKU,
			Category:  it.Category,
			UnitPrice: it.UnitPrice,
			Qty:       it.Qty,
			Fragile:   it.Fragile,
		})
	}
	return pricing.Invoice{
		ID:         strings.TrimSpace(r.InvoiceID),
		CustomerID: r.CustomerID,
		Country:    strings.TrimSpace(r.Country),
		Membership: r.Membership,
		Coupon:     r.Coupon,
		Items:      items,
	}
}

// QuoteResponse is the priced breakdown returned to callers.
type QuoteResponse struct {
	QuoteID    string   `json:"quoteId"`
	InvoiceID  string   `json:"invoiceId"`
	Subtotal   string   `json:"subtotal"`
	FragileFee string   `json:"fragileFee"`
	Shipping   string   `json:"shipping"`
	Discount   string   `json:"discount"`
	TaxRate    string   `json:"taxRate"`
	Tax        string   `json:"tax"`
	Total      string   `json:"total"`
	Warnings   []string `json:"warnings"`
}

type fieldProblem struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Quote prices the invoice in the request body.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]fieldProblem, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fieldProblem{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
			}
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice shape", problems)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	q, err := h.Svc.Quote(r.Context(), req.toInvoice())
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": newQuoteResponse(q)})
}

// Rates returns the tables the engine prices with.
func (h *Handler) Rates(w http.ResponseWriter, _ *http.Request) {
	if h.Svc == nil || h.Svc.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": newRatesView(h.Svc.Engine.Rates())})
}

func newQuoteResponse(q pricing.Quote) QuoteResponse {
	return QuoteResponse{
		QuoteID:    uuid.NewString(),
		InvoiceID:  q.InvoiceID,
		Subtotal:   q.Subtotal.StringFixed(2),
		FragileFee: q.FragileFee.StringFixed(2),
		Shipping:   q.Shipping.StringFixed(2),
		Discount:   q.Discount.StringFixed(2),
		TaxRate:    q.TaxRate.String(),
		Tax:        q.Tax.StringFixed(2),
		Total:      q.Total.StringFixed(2),
		Warnings:   q.Warnings,
	}
}

func toAppError(err error) error {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		return common.NewAppError("INVALID_INVOICE", verr.Error(), http.StatusUnprocessableEntity, err).WithDetails(verr.Problems)
	}
	return err
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

type shippingTierView struct {
	Below string `json:"below"`
	Fee   string `json:"fee"`
}

type ratesView struct {
	Coupons           map[string]string             `json:"coupons"`
	Tax               map[string]string             `json:"tax"`
	Membership        map[string]string             `json:"membership"`
	Shipping          map[string][]shippingTierView `json:"shipping"`
	VolumeThreshold   string                        `json:"volumeThreshold"`
	VolumeAmount      string                        `json:"volumeAmount"`
	FragileFeePerUnit string                        `json:"fragileFeePerUnit"`
	UpsellThreshold   string                        `json:"upsellThreshold"`
}

func newRatesView(r pricing.Rates) ratesView {
	view := ratesView{
		Coupons:           stringify(r.Coupons),
		Tax:               stringify(r.TaxRates),
		Membership:        stringify(r.Memberships),
		Shipping:          make(map[string][]shippingTierView, len(r.Shipping)+1),
		VolumeThreshold:   r.Volume.Threshold.String(),
		VolumeAmount:      r.Volume.Amount.String(),
		FragileFeePerUnit: r.FragileFeePerUnit.String(),
		UpsellThreshold:   r.UpsellThreshold.String(),
	}
	view.Tax[pricing.DefaultRegion] = r.DefaultTaxRate.String()
	for country, schedule := range r.Shipping {
		view.Shipping[country] = tierViews(schedule)
	}
	view.Shipping[pricing.DefaultRegion] = tierViews(r.DefaultShipping)
	return view
}

func tierViews(s pricing.ShippingSchedule) []shippingTierView {
	out := make([]shippingTierView, 0, len(s))
	for _, t := range s {
		out = append(out, shippingTierView{Below: t.Below.String(), Fee: t.Fee.String()})
	}
	return out
}

func stringify(in map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v.String()
	}
	return out
}
