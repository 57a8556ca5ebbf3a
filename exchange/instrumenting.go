package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"go-currency-converter/domain"
)

// instrumentingService decorates an exchange.Service with request metrics
type instrumentingService struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	next     Service
}

// NewInstrumentingService returns a Service recording a request counter and a
// latency histogram on meter.
func NewInstrumentingService(meter metric.Meter, s Service) (Service, error) {
	requests, err := meter.Int64Counter("exchange.requests",
		metric.WithDescription("Number of exchange requests by method and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}
	duration, err := meter.Float64Histogram("exchange.request.duration",
		metric.WithDescription("Duration of exchange requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &instrumentingService{
		requests: requests,
		duration: duration,
		next:     s,
	}, nil
}

func (s *instrumentingService) record(ctx context.Context, method, outcome string, begin time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	s.requests.Add(ctx, 1, attrs)
	s.duration.Record(ctx, time.Since(begin).Seconds(), attrs)
}

func (s *instrumentingService) Convert(ctx context.Context, req domain.ConversionRequest) (res domain.ConversionResult, err error) {
	defer func(begin time.Time) {
		s.record(ctx, "convert", outcome(err), begin)
	}(time.Now())
	return s.next.Convert(ctx, req)
}

func (s *instrumentingService) ListRates(ctx context.Context, base domain.Currency) (rates domain.Rates, err error) {
	defer func(begin time.Time) {
		s.record(ctx, "list_rates", outcome(err), begin)
	}(time.Now())
	return s.next.ListRates(ctx, base)
}

func (s *instrumentingService) IsSupported(ctx context.Context, currency domain.Currency) (supported bool) {
	defer func(begin time.Time) {
		o := "unsupported"
		if supported {
			o = "supported"
		}
		s.record(ctx, "is_supported", o, begin)
	}(time.Now())
	return s.next.IsSupported(ctx, currency)
}

// outcome classifies an error by the domain error it matches
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUnknownCurrency):
		return "unknown_currency"
	case errors.Is(err, domain.ErrRateSource):
		return "rate_source"
	default:
		return "error"
	}
}
