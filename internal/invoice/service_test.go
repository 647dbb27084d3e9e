package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	obs.MustRegisterDomainMetrics("invoice_test", prometheus.NewRegistry())
	return &Service{Engine: pricing.NewDefaultEngine(), Logger: zerolog.Nop()}
}

func TestServiceQuoteRecordsMetrics(t *testing.T) {
	svc := newTestService(t)
	okBefore := testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("TH", "ok"))
	warnBefore := testutil.ToFloat64(obs.QuoteWarningsTotal.WithLabelValues(pricing.WarningUnknownCoupon))

	q, err := svc.Quote(context.Background(), pricing.Invoice{
		ID:      "INV-100",
		Country: "TH",
		Coupon:  "NOPE",
		Items:   []pricing.LineItem{{SKU: "A", UnitPrice: decimal.NewFromInt(40), Qty: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{pricing.WarningUnknownCoupon}, q.Warnings)
	// 80 + 60 shipping + 5.6 tax
	require.Equal(t, "145.60", q.Total.StringFixed(2))

	require.Equal(t, okBefore+1, testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("TH", "ok")))
	require.Equal(t, warnBefore+1, testutil.ToFloat64(obs.QuoteWarningsTotal.WithLabelValues(pricing.WarningUnknownCoupon)))
}

func TestServiceQuoteInvalid(t *testing.T) {
	svc := newTestService(t)
	before := testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("other", "invalid"))

	_, err := svc.Quote(context.Background(), pricing.Invoice{Country: "XX"})
	require.Error(t, err)
	require.True(t, errors.Is(err, pricing.ErrInvalidInvoice))
	require.Equal(t, before+1, testutil.ToFloat64(obs.QuotesTotal.WithLabelValues("other", "invalid")))
}
