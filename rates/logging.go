package rates

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"go-currency-converter/domain"
)

// loggingService decorates a rates.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) FetchRates(ctx context.Context, base domain.Currency) (table domain.RateTable, err error) {
	defer func(begin time.Time) {
		logger := level.Debug(s.logger)
		if err != nil {
			logger = level.Warn(s.logger)
		}
		logger.Log(
			"method", "fetch_rates",
			"base", base,
			"date", table.Date,
			"count", len(table.Rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchRates(ctx, base)
}
