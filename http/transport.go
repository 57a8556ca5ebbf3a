package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"

	"go-currency-converter/domain"
	"go-currency-converter/exchange"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Currency Converter API"

// Server dependencies for HTTP Server functions
type Server struct {
	Service exchange.Service
	Logger  log.Logger

	router *gin.Engine

	allowedOrigins []string
	trustedProxies []string
	limiter        *clientLimiter
}

// Option configures a Server
type Option func(*Server)

// WithAllowedOrigins restricts CORS to origins, "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithTrustedProxies lets the listed proxy IPs or CIDRs set the client IP
// through X-Forwarded-For. Without it the client IP is the remote address.
func WithTrustedProxies(proxies ...string) Option {
	return func(s *Server) {
		s.trustedProxies = proxies
	}
}

// WithRateLimit allows each client rps requests per second with bursts of burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newClientLimiter(rps, burst)
	}
}

// NewServer builds a Server with all routes registered.
func NewServer(s exchange.Service, logger log.Logger, opts ...Option) *Server {
	server := &Server{
		Service:        s,
		Logger:         logger,
		router:         gin.New(),
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(server)
	}
	if err := server.router.SetTrustedProxies(server.trustedProxies); err != nil {
		level.Error(logger).Log("msg", "invalid trusted proxies, trusting none", "proxies", fmt.Sprint(server.trustedProxies), "err", err)
		_ = server.router.SetTrustedProxies(nil)
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	s.router.Use(recovery(s.Logger), correlationID(), requestLogger(s.Logger), corsHandler(s.allowedOrigins))

	api := s.router.Group("/api/currency")
	api.GET("/health", s.health())

	limited := api.Group("")
	if s.limiter != nil {
		limited.Use(s.limiter.handler())
	}
	limited.POST("/convert", s.convert())
	limited.GET("/rates/:baseCurrency", s.rates())
	limited.GET("/supported/:currencyCode", s.supported())
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Message string `json:"message"`
}

// number renders a decimal as a bare JSON number
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// convert produces HTTP handler for currency conversions
func (s *Server) convert() gin.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency domain.Currency `json:"fromCurrency"`
		ToCurrency   domain.Currency `json:"toCurrency"`
		Amount       decimal.Decimal `json:"amount"`
	}

	// response for marshalling JSON responses to return to clients
	type response struct {
		FromCurrency    domain.Currency `json:"fromCurrency"`
		ToCurrency      domain.Currency `json:"toCurrency"`
		Amount          json.Number     `json:"amount"`
		ConvertedAmount json.Number     `json:"convertedAmount"`
		ExchangeRate    json.Number     `json:"exchangeRate"`
		Timestamp       time.Time       `json:"timestamp"`
		Message         string          `json:"message"`
	}

	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Message: "Error: invalid json"})
			return
		}

		result, err := s.Service.Convert(c.Request.Context(), domain.ConversionRequest{
			From:   req.FromCurrency,
			To:     req.ToCurrency,
			Amount: req.Amount,
		})
		if err != nil {
			s.fail(c, err)
			return
		}

		c.JSON(http.StatusOK, response{
			FromCurrency:    result.From,
			ToCurrency:      result.To,
			Amount:          number(result.Amount),
			ConvertedAmount: json.Number(result.ConvertedAmount.StringFixed(domain.ConvertedScale)),
			ExchangeRate:    number(result.Rate),
			Timestamp:       result.Timestamp,
			Message:         result.Message,
		})
	}
}

// rates produces HTTP handler listing the rates of a base currency
func (s *Server) rates() gin.HandlerFunc {
	return func(c *gin.Context) {
		base := domain.Currency(c.Param("baseCurrency"))

		rates, err := s.Service.ListRates(c.Request.Context(), base)
		if err != nil {
			s.fail(c, err)
			return
		}

		response := make(map[domain.Currency]json.Number, len(rates))
		for code, rate := range rates {
			response[code] = number(rate)
		}
		c.JSON(http.StatusOK, response)
	}
}

// supported produces HTTP handler checking currency support
func (s *Server) supported() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := domain.Currency(c.Param("currencyCode"))
		supported := s.Service.IsSupported(c.Request.Context(), code)
		c.JSON(http.StatusOK, gin.H{"supported": supported})
	}
}

func (s *Server) health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": ServiceName})
	}
}
