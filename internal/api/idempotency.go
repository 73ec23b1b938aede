package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

const (
	headerIdempotencyKey = "Idempotency-Key"

	idempotencyTTL     = 24 * time.Hour
	maxIdempotencyBody = 1 << 20 // 1 MiB
)

// responseRecorder перехватывает статус и тело ответа, чтобы сохранить их
// в idempotency-записи и воспроизводить при повторных запросах.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// IdempotencyMiddleware обеспечивает exactly-once семантику для мутирующих
// запросов с заголовком Idempotency-Key. Повторный запрос с тем же ключом и
// тем же телом получает сохранённый ответ; с другим телом — 422; пока
// первый запрос ещё обрабатывается — 409.
func IdempotencyMiddleware(repo domain.IdempotencyRepository, logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "idempotency-middleware")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerIdempotencyKey)
			if key == "" || repo == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r.Method, r.URL.Path, body)

			record, err := repo.CreateProcessing(r.Context(), key, requestHash, time.Now().UTC().Add(idempotencyTTL))
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrIdempotencyHashMismatch):
					writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
						Error: "idempotency key is already used with a different request",
					})
					return
				case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
					replayOrConflict(w, record)
					return
				default:
					logger.WithError(err).Error("failed to register idempotency key")
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
					return
				}
			}

			recorder := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}

			responseBody := append([]byte(nil), recorder.body.Bytes()...)
			if status < http.StatusInternalServerError {
				if markErr := repo.MarkDone(r.Context(), key, responseBody, status); markErr != nil {
					logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key as done")
				}
				return
			}
			if markErr := repo.MarkFailed(r.Context(), key, responseBody, status); markErr != nil {
				logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key as failed")
			}
		})
	}
}

func replayOrConflict(w http.ResponseWriter, record domain.IdempotencyRecord) {
	switch record.Status {
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		w.Header().Set("Content-Type", "application/json")
		status := record.HTTPStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(record.ResponseBody)
	default:
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "request with this idempotency key is still being processed",
		})
	}
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
