package http

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// CorrelationIDHeader carries the request correlation id in both directions.
	CorrelationIDHeader = "X-Correlation-ID"
	correlationIDKey    = "correlationID"
)

// correlationID reuses the caller's correlation id or generates one
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

// recovery turns a handler panic into a 500 and logs it with its stack
func recovery(logger log.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		level.Error(logger).Log(
			"msg", "panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"correlation_id", c.GetString(correlationIDKey),
			"panic", fmt.Sprint(recovered),
			"stack", string(debug.Stack()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: "Conversion failed: internal error"})
	})
}

// requestLogger logs one line per request once it has been served
func requestLogger(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()
		c.Next()

		status := c.Writer.Status()
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		l := level.Info(logger)
		if status >= http.StatusInternalServerError {
			l = level.Error(logger)
		}
		l.Log(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"correlation_id", c.GetString(correlationIDKey),
			"client_ip", c.ClientIP(),
			"took", time.Since(begin),
			"err", err,
		)
	}
}

// corsHandler allows origins, "*" allows any
func corsHandler(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", CorrelationIDHeader}
	config.ExposeHeaders = []string{CorrelationIDHeader, "Retry-After"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

// idleLimiterTTL is how long an unused client limiter is kept
const idleLimiterTTL = 10 * time.Minute

// clientLimiter keeps one token bucket per client IP
type clientLimiter struct {
	rps   rate.Limit
	burst int

	lock      sync.Mutex
	limiters  map[string]*limiterEntry
	lastPrune time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		limiters:  map[string]*limiterEntry{},
		lastPrune: time.Now(),
	}
}

// get returns the limiter of key, dropping idle limiters at most once per idleLimiterTTL
func (l *clientLimiter) get(key string) *rate.Limiter {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > idleLimiterTTL {
		for k, e := range l.limiters {
			if now.Sub(e.lastAccess) > idleLimiterTTL {
				delete(l.limiters, k)
			}
		}
		l.lastPrune = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter
}

func (l *clientLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Message: "Error: too many requests"})
			return
		}
		c.Next()
	}
}
