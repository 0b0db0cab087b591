package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rowanmckenna/marketstead-backend/api/responses"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
	"github.com/rowanmckenna/marketstead-backend/pkg/redis"
)

const idempotencyHeader = "Idempotency-Key"

type idempotencyRule struct {
	method  string
	matcher func(path string) bool
	ttl     time.Duration
}

var idempotencyRules = []idempotencyRule{
	{
		method: http.MethodPost,
		matcher: func(path string) bool {
			return path == "/api/v1/orders"
		},
		ttl: 7 * 24 * time.Hour,
	},
}

func ruleFor(r *http.Request) *idempotencyRule {
	for i := range idempotencyRules {
		rule := &idempotencyRules[i]
		if rule.method == r.Method && rule.matcher(r.URL.Path) {
			return rule
		}
	}
	return nil
}

type idempotentRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
	RequestHash string            `json:"request_hash"`
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotency replays stored responses for requests bearing a previously
// seen Idempotency-Key and rejects key reuse with a different payload.
func Idempotency(store redis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule := ruleFor(r)
			if rule == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header is required"))
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			requestHash := hashBytes(payload)

			userID, _ := UserIDFromContext(r.Context())
			scope := strings.Join([]string{userID.String(), r.Method, r.URL.Path}, "|")
			storageKey := store.IdempotencyKey(scope, key)

			stored, err := store.Get(r.Context(), storageKey)
			if err == nil {
				replayStoredResponse(r, w, logg, stored, requestHash)
				return
			}
			if !errors.Is(err, goredis.Nil) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError {
				return
			}

			record := idempotentRecord{
				Status:      capture.status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				Headers:     map[string]string{"Content-Type": capture.Header().Get("Content-Type")},
				RequestHash: requestHash,
			}
			encoded, err := json.Marshal(record)
			if err != nil {
				logg.Error(r.Context(), "idempotency.encode_failed", err)
				return
			}
			if _, err := store.SetNX(r.Context(), storageKey, string(encoded), rule.ttl); err != nil {
				logg.Error(r.Context(), "idempotency.store_failed", err)
			}
		})
	}
}

func replayStoredResponse(r *http.Request, w http.ResponseWriter, logg *logger.Logger, stored, requestHash string) {
	var record idempotentRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding stored response"))
		return
	}

	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key was already used with a different payload"))
		return
	}

	body, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding stored body"))
		return
	}

	for name, value := range record.Headers {
		if value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(record.Status)
	w.Write(body)
}

func hashBytes(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
