package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
			}
			if claims, ok := ClaimsFromContext(c.Request().Context()); ok {
				attrs = append(attrs, "subject", claims.Subject)
			}
			switch {
			case v.Error != nil && v.Status >= http.StatusInternalServerError:
				slog.Error("request failed", append(attrs, "error", v.Error.Error())...)
			case v.Error != nil:
				slog.Info("request rejected", append(attrs, "error", v.Error.Error())...)
			default:
				slog.Debug("request", attrs...)
			}
			return nil
		},
	})
}

// visitorStore keeps one token bucket per client IP. Buckets idle for longer than ttl are dropped.
type visitorStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorStore(perSecond float64, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// rateBurst allows short bursts of a few requests above the steady rate.
func rateBurst(perSecond float64) int {
	return max(3, int(perSecond*2))
}

// Allow implements middleware.RateLimiterStore.
func (s *visitorStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastGC) > s.ttl {
		for id, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, id)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(_ echo.Context, identifier string, _ error) error {
			slog.Warn("rate limit exceeded", "client", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

type claimsKey struct{}

// jwtAuth requires an HS256 bearer token signed with secret.
func jwtAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			claims, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token").SetInternal(err)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), claimsKey{}, claims)))
			return next(c)
		}
	}
}

// ClaimsFromContext returns the verified token claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (*jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.RegisteredClaims)
	return claims, ok
}

// IssueToken signs an HS256 token for subject valid for ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "gridiron",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("gridiron"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// concurrencyLimit answers 503 when every slot is taken instead of queueing.
func concurrencyLimit(sem *semaphore.Weighted) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !sem.TryAcquire(1) {
				c.Response().Header().Set("Retry-After", "5")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "too many questions in flight, retry shortly")
			}
			defer sem.Release(1)
			return next(c)
		}
	}
}
