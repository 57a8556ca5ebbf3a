package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"go-currency-converter/domain"
	"go-currency-converter/rates"
)

// Service interface for converting from one currency to another
type Service interface {
	// Convert computes a conversion with the current exchange rate.
	Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResult, error)
	// ListRates returns the current rates for a base currency, unmodified.
	ListRates(ctx context.Context, base domain.Currency) (domain.Rates, error)
	// IsSupported reports whether a currency is quoted against domain.ReferenceCurrency.
	// Rate source failures are reported as false.
	IsSupported(ctx context.Context, currency domain.Currency) bool
}

// service converts with rates looked up fresh on every call
type service struct {
	// ratesService to lookup exchange rates
	ratesService rates.Service

	validate *validator.Validate

	// now returns the conversion timestamp
	now func() time.Time
}

// NewService constructs a valid Service
func NewService(s rates.Service) Service {
	return &service{
		ratesService: s,
		validate:     newValidator(),
		now:          time.Now,
	}
}

// newValidator checks the request's required fields.
func newValidator() *validator.Validate {
	return validator.New()
}

// Convert computes a conversion from one currency to another with the current exchange rate.
func (s *service) Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResult, error) {
	if err := s.check(req); err != nil {
		return domain.ConversionResult{}, err
	}

	table, err := s.ratesService.FetchRates(ctx, req.From)
	if err != nil {
		return domain.ConversionResult{}, fmt.Errorf("convert from [%v]: %w", req.From, err)
	}

	rate, ok := table.Rates[req.To]
	if !ok {
		return domain.ConversionResult{}, &domain.UnknownCurrencyError{Currency: req.To}
	}

	return domain.ConversionResult{
		From:            req.From,
		To:              req.To,
		Amount:          req.Amount,
		ConvertedAmount: domain.ApplyRate(req.Amount, rate),
		Rate:            rate,
		Timestamp:       s.now(),
		Message:         domain.ConversionSuccessful,
	}, nil
}

// check turns validator failures into a *domain.ValidationError.
// The amount sign is read from the decimal itself, tiny amounts stay positive.
func (s *service) check(req domain.ConversionRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		if !req.Amount.IsPositive() {
			return &domain.ValidationError{Reason: "amount must be positive"}
		}
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &domain.ValidationError{Reason: err.Error()}
	}
	switch fe := fieldErrors[0]; fe.Field() {
	case "From":
		return &domain.ValidationError{Reason: "from currency is required"}
	case "To":
		return &domain.ValidationError{Reason: "to currency is required"}
	default:
		return &domain.ValidationError{Reason: fe.Error()}
	}
}

// ListRates returns the rate mapping for base as fetched.
func (s *service) ListRates(ctx context.Context, base domain.Currency) (domain.Rates, error) {
	table, err := s.ratesService.FetchRates(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("list rates [%v]: %w", base, err)
	}
	return table.Rates, nil
}

// IsSupported always checks against the domain.ReferenceCurrency table.
// The reference currency itself is only reported once its table could be fetched.
func (s *service) IsSupported(ctx context.Context, currency domain.Currency) bool {
	table, err := s.ratesService.FetchRates(ctx, domain.ReferenceCurrency)
	if err != nil {
		return false
	}
	_, ok := table.Rates[currency]
	return ok || currency == domain.ReferenceCurrency
}
