package exchange

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"go-currency-converter/domain"
)

// loggingService decorates an exchange.Service with logging
type loggingService struct {
	logger log.Logger
	next   Service
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

// leveled logs failures as errors and everything else as info
func (s *loggingService) leveled(err error) log.Logger {
	if err != nil {
		return level.Error(s.logger)
	}
	return level.Info(s.logger)
}

func (s *loggingService) Convert(ctx context.Context, req domain.ConversionRequest) (res domain.ConversionResult, err error) {
	defer func(begin time.Time) {
		s.leveled(err).Log(
			"method", "convert",
			"amount", req.Amount,
			"from", req.From,
			"to", req.To,
			"rate", res.Rate,
			"converted_amount", res.ConvertedAmount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Convert(ctx, req)
}

func (s *loggingService) ListRates(ctx context.Context, base domain.Currency) (rates domain.Rates, err error) {
	defer func(begin time.Time) {
		s.leveled(err).Log(
			"method", "list_rates",
			"base", base,
			"count", len(rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListRates(ctx, base)
}

func (s *loggingService) IsSupported(ctx context.Context, currency domain.Currency) (supported bool) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "is_supported",
			"currency", currency,
			"supported", supported,
			"took", time.Since(begin),
		)
	}(time.Now())
	return s.next.IsSupported(ctx, currency)
}
