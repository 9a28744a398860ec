package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/pkg/idempotency"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/response"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
	maxIdempotencyKeyLength   = 255
)

// recordingWriter tees the handler's output so it can be cached.
type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *recordingWriter) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *recordingWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when an authenticated user repeats
// an Idempotency-Key. Responses with status >= 500 are not stored so the
// client can retry. A nil store or a store failure lets the request through.
func Idempotency(store idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			userID := GetUserID(r.Context())
			if key == "" || store == nil || userID == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				response.BadRequest(w, "Idempotency-Key is too long")
				return
			}

			ctx := r.Context()
			log := logger.FromContext(ctx)

			cached, err := store.Get(ctx, userID, key)
			if err != nil {
				log.Error().Err(err).Msg("Idempotency lookup failed")
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				if cached.Method != r.Method || cached.Path != r.URL.Path {
					response.Error(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key was already used for a different request")
					return
				}
				log.Info().Str("idempotency_key", key).Msg("Idempotency replay")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(IdempotencyReplayedHeader, "true")
				w.WriteHeader(cached.StatusCode)
				if _, err := w.Write(cached.Body); err != nil {
					log.Error().Err(err).Msg("Failed to write cached response")
				}
				return
			}

			acquired, err := store.Acquire(ctx, userID, key)
			if err != nil {
				log.Error().Err(err).Msg("Idempotency lock failed")
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				response.Error(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "A request with this Idempotency-Key is still being processed")
				return
			}
			defer func() {
				if err := store.Release(context.WithoutCancel(ctx), userID, key); err != nil {
					log.Error().Err(err).Msg("Idempotency unlock failed")
				}
			}()

			recorder := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode < http.StatusInternalServerError {
				if err := store.Save(context.WithoutCancel(ctx), userID, key, idempotency.CachedResponse{
					Method:     r.Method,
					Path:       r.URL.Path,
					StatusCode: recorder.statusCode,
					Body:       recorder.body.Bytes(),
				}); err != nil {
					log.Error().Err(err).Msg("Failed to store idempotent response")
				}
			}
		})
	}
}
