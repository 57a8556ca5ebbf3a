package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-currency-converter/domain"
)

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownCurrency):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateSource):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an errorResponse. Client errors are prefixed "Error:",
// server side failures "Conversion failed:".
func (s *Server) fail(c *gin.Context, err error) {
	status := ErrorToStatusCode(err)
	prefix := "Error: "
	if status >= http.StatusInternalServerError {
		prefix = "Conversion failed: "
	}
	_ = c.Error(err)
	c.JSON(status, errorResponse{Message: prefix + err.Error()})
}
