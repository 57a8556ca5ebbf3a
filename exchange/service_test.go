package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-currency-converter/domain"
)

type mock struct {
	tables map[domain.Currency]domain.Rates
	err    error
	calls  int32
}

func (m *mock) FetchRates(_ context.Context, base domain.Currency) (domain.RateTable, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return domain.RateTable{}, &domain.RateSourceError{Base: base, Cause: m.err}
	}
	rates, ok := m.tables[base]
	if !ok {
		return domain.RateTable{}, &domain.RateSourceError{Base: base, Cause: errors.New("unsupported code")}
	}
	return domain.RateTable{Base: base, Date: "2024-01-15", Rates: rates}, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(m *mock) *service {
	s := NewService(m).(*service)
	s.now = func() time.Time { return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC) }
	return s
}

func TestService_Convert(t *testing.T) {
	cs := &mock{
		tables: map[domain.Currency]domain.Rates{
			"USD": {"EUR": d("0.85"), "GBP": d("0.73"), "JPY": d("110.50"), "HALF": d("0.855")},
			"GBP": {"FOO": d("4.0"), "BAR": d("5.0")},
		},
	}
	service := newTestService(cs)

	tests := []struct {
		name      string
		req       domain.ConversionRequest
		converted string
		rate      string
	}{
		{"usd -> eur", domain.ConversionRequest{From: "USD", To: "EUR", Amount: d("100.00")}, "85.00", "0.85"},
		{"usd -> jpy", domain.ConversionRequest{From: "USD", To: "JPY", Amount: d("2.5")}, "276.25", "110.50"},
		{"half up", domain.ConversionRequest{From: "USD", To: "HALF", Amount: d("100.00")}, "85.50", "0.855"},
		{"gbp -> foo", domain.ConversionRequest{From: "GBP", To: "FOO", Amount: d("10")}, "40.00", "4"},
		{"tiny amount", domain.ConversionRequest{From: "GBP", To: "BAR", Amount: d("0.001")}, "0.01", "5"},
		{"below float64 range", domain.ConversionRequest{From: "USD", To: "EUR", Amount: d("1e-330")}, "0.00", "0.85"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.Convert(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.req.From, got.From)
			assert.Equal(t, tt.req.To, got.To)
			assert.True(t, tt.req.Amount.Equal(got.Amount))
			assert.Equal(t, tt.converted, got.ConvertedAmount.StringFixed(domain.ConvertedScale))
			assert.True(t, d(tt.rate).Equal(got.Rate), "rate %v", got.Rate)
			assert.Equal(t, domain.ConversionSuccessful, got.Message)
			assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), got.Timestamp)
		})
	}
}

func TestService_ConvertValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.ConversionRequest
		reason string
	}{
		{"zero amount", domain.ConversionRequest{From: "USD", To: "EUR", Amount: decimal.Zero}, "amount must be positive"},
		{"negative amount", domain.ConversionRequest{From: "USD", To: "EUR", Amount: d("-100.00")}, "amount must be positive"},
		{"missing from", domain.ConversionRequest{To: "EUR", Amount: d("1")}, "from currency is required"},
		{"missing to", domain.ConversionRequest{From: "USD", Amount: d("1")}, "to currency is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &mock{tables: map[domain.Currency]domain.Rates{"USD": {"EUR": d("0.85")}}}
			service := newTestService(cs)

			_, err := service.Convert(context.Background(), tt.req)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.reason, validationErr.Reason)
			assert.Equal(t, int32(0), atomic.LoadInt32(&cs.calls), "no outbound call expected")
		})
	}
}

func TestService_ConvertConcurrent(t *testing.T) {
	cs := &mock{tables: map[domain.Currency]domain.Rates{
		"USD": {"EUR": d("0.85"), "GBP": d("0.73")},
		"GBP": {"USD": d("1.37")},
	}}
	service := newTestService(cs)

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]domain.ConversionResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := domain.ConversionRequest{From: "USD", To: "EUR", Amount: decimal.NewFromInt(int64(i + 1))}
			if i%2 == 1 {
				req = domain.ConversionRequest{From: "GBP", To: "USD", Amount: decimal.NewFromInt(int64(i + 1))}
			}
			results[i], errs[i] = service.Convert(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "request %d", i)
		rate := d("0.85")
		if i%2 == 1 {
			rate = d("1.37")
		}
		want := decimal.NewFromInt(int64(i + 1)).Mul(rate).Round(domain.ConvertedScale)
		assert.True(t, want.Equal(results[i].ConvertedAmount), fmt.Sprintf("request %d: got %v want %v", i, results[i].ConvertedAmount, want))
		assert.True(t, rate.Equal(results[i].Rate), "request %d", i)
	}
	assert.Equal(t, int32(n), atomic.LoadInt32(&cs.calls))
}

func TestService_ConvertUnknownCurrency(t *testing.T) {
	cs := &mock{tables: map[domain.Currency]domain.Rates{"USD": {"EUR": d("0.85")}}}
	service := newTestService(cs)

	_, err := service.Convert(context.Background(), domain.ConversionRequest{From: "USD", To: "XYZ", Amount: d("100.00")})

	var unknown *domain.UnknownCurrencyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, domain.Currency("XYZ"), unknown.Currency)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}

func TestService_ConvertRateSourceFailure(t *testing.T) {
	cs := &mock{err: context.DeadlineExceeded}
	service := newTestService(cs)

	_, err := service.Convert(context.Background(), domain.ConversionRequest{From: "USD", To: "EUR", Amount: d("100.00")})

	assert.ErrorIs(t, err, domain.ErrRateSource)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cs.calls))
}

func TestService_ListRates(t *testing.T) {
	usd := domain.Rates{"EUR": d("0.85"), "GBP": d("0.73"), "JPY": d("110.50")}
	cs := &mock{tables: map[domain.Currency]domain.Rates{"USD": usd}}
	service := newTestService(cs)

	got, err := service.ListRates(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, usd, got)

	_, err = service.ListRates(context.Background(), "ABC")
	assert.ErrorIs(t, err, domain.ErrRateSource)
}

func TestService_IsSupported(t *testing.T) {
	cs := &mock{tables: map[domain.Currency]domain.Rates{
		"USD": {"EUR": d("0.85")},
		"GBP": {"XYZ": d("2")},
	}}
	service := newTestService(cs)

	tests := []struct {
		currency domain.Currency
		want     bool
	}{
		{"EUR", true},
		{"USD", true},
		{"XYZ", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.currency), func(t *testing.T) {
			assert.Equal(t, tt.want, service.IsSupported(context.Background(), tt.currency))
		})
	}
}

func TestService_IsSupportedRateSourceFailure(t *testing.T) {
	cs := &mock{err: errors.New("connection refused")}
	service := newTestService(cs)

	assert.False(t, service.IsSupported(context.Background(), "EUR"))
	assert.False(t, service.IsSupported(context.Background(), "USD"))
}
