package invoice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// Service prices invoices and records the outcome in logs, metrics and traces.
type Service struct {
	Engine *pricing.Engine
	Logger zerolog.Logger
}

// Quote prices inv with the configured engine.
func (s *Service) Quote(ctx context.Context, inv pricing.Invoice) (pricing.Quote, error) {
	_, span := otel.Tracer("invoice").Start(ctx, "invoice.quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("invoice.id", inv.ID),
		attribute.String("invoice.country", inv.Country),
		attribute.Int("invoice.items", len(inv.Items)),
	)

	logger := s.logger(ctx)
	region := s.regionLabel(inv.Country)
	q, err := s.Engine.Quote(inv)
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			observeQuote(region, "invalid")
			logger.Info().
				Str("invoice_id", inv.ID).
				Strs("problems", verr.Problems).
				Msg("invoice rejected")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return pricing.Quote{}, err
	}

	observeQuote(region, "ok")
	for _, w := range q.Warnings {
		if obs.QuoteWarningsTotal != nil {
			obs.QuoteWarningsTotal.WithLabelValues(w).Inc()
		}
	}
	if obs.QuoteAmount != nil {
		total, _ := q.Total.Float64()
		obs.QuoteAmount.WithLabelValues(region).Observe(total)
	}
	span.SetAttributes(
		attribute.String("invoice.total", q.Total.StringFixed(2)),
		attribute.StringSlice("invoice.warnings", q.Warnings),
	)
	logger.Debug().
		Str("invoice_id", inv.ID).
		Str("country", inv.Country).
		Str("membership", inv.Membership).
		Str("total", q.Total.StringFixed(2)).
		Strs("warnings", q.Warnings).
		Msg("invoice quoted")
	return q, nil
}

// logger prefers the request-scoped logger installed by obs.RequestLogger.
func (s *Service) logger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return s.Logger
}

// regionLabel keeps metric cardinality bounded to the configured regions.
func (s *Service) regionLabel(country string) string {
	if s.Engine.HasRegion(country) {
		return country
	}
	return "other"
}

func observeQuote(region, result string) {
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(region, result).Inc()
	}
}
