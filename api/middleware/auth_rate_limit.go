package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rowanmckenna/marketstead-backend/api/responses"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
)

// AuthRateLimitPolicy caps attempts for one auth endpoint per window,
// counted both per source IP and per target email.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

// LoginRateLimitPolicy derives the login policy from configuration.
func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.LoginWindow,
		IPLimit:    cfg.LoginIPLimit,
		EmailLimit: cfg.LoginEmailLimit,
	}
}

// RegisterRateLimitPolicy derives the registration policy from configuration.
func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.RegisterWindow,
		IPLimit:    cfg.RegisterIPLimit,
		EmailLimit: cfg.RegisterEmailLimit,
	}
}

// RateLimiter applies a fixed-window counter per scope.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimit guards credential endpoints against brute force. A limiter
// error lets the request through rather than locking out all logins.
func AuthRateLimit(limiter RateLimiter, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.Window <= 0 || limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if policy.IPLimit > 0 && ip != "" {
				scope := strings.Join([]string{"auth", policy.Name, "ip", ip}, ":")
				allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, int64(policy.IPLimit), policy.Window)
				if err != nil {
					logg.Error(r.Context(), "rate_limit.check_failed", err)
				} else if !allowed {
					respondRateLimited(r, w, logg)
					return
				}
			}

			if policy.EmailLimit > 0 {
				if email := extractEmail(r); email != "" {
					scope := strings.Join([]string{"auth", policy.Name, "email", hashValue(email)}, ":")
					allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, int64(policy.EmailLimit), policy.Window)
					if err != nil {
						logg.Error(r.Context(), "rate_limit.check_failed", err)
					} else if !allowed {
						respondRateLimited(r, w, logg)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w,
		pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(payload))

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
