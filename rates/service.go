package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-currency-converter/domain"
)

// DefaultBaseURL is used when no provider URL is configured.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// DefaultTimeout bounds a single provider call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 1 << 20

// Service wraps the exchange rate provider REST API
type Service interface {
	FetchRates(ctx context.Context, base domain.Currency) (domain.RateTable, error)
}

// service exchange rate provider API
type service struct {
	// url base API url, rates are served at {url}/{base}
	url string

	// client for HTTP requests, shared by all calls
	client *http.Client
}

// NewService constructs a valid rates Service. A zero timeout selects DefaultTimeout.
func NewService(baseURL string, timeout time.Duration) Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &service{
		url: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// response body of the provider
type response struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates loads the current rates for a base currency.
// Every failure is reported as a *domain.RateSourceError.
func (s *service) FetchRates(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	table, err := s.fetch(ctx, base)
	if err != nil {
		return domain.RateTable{}, &domain.RateSourceError{Base: base, Cause: err}
	}
	return table, nil
}

func (s *service) fetch(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	endpoint := fmt.Sprintf("%v/%v", s.url, url.PathEscape(string(base)))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("building http request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	httpResponse, err := s.client.Do(request)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("http get: %w", err)
	}
	defer httpResponse.Body.Close()

	bytes, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxBodySize))
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("reading json: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return domain.RateTable{}, fmt.Errorf("provider returned status %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(bytes)))
	}

	var body response
	err = json.Unmarshal(bytes, &body)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("decoding json: %w", err)
	}
	if body.Rates == nil {
		return domain.RateTable{}, errors.New("decoding json: missing rates")
	}

	rates := make(domain.Rates, len(body.Rates))
	for code, rate := range body.Rates {
		if !rate.IsPositive() {
			return domain.RateTable{}, fmt.Errorf("bad rate value [%v]: %v", code, rate)
		}
		rates[domain.Currency(code)] = rate
	}

	return domain.RateTable{
		Base:  domain.Currency(body.Base),
		Date:  body.Date,
		Rates: rates,
	}, nil
}
