package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mateforge/mateauth"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps an engine error kind to its status code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	case http.StatusTooManyRequests:
		var rl *mateauth.RateLimitError
		if errors.As(err, &rl) {
			w.Header().Set("Retry-After", strconv.FormatInt(retrySeconds(rl.RetryAfter), 10))
		}
	case http.StatusInternalServerError:
		h.logger.ErrorContext(r.Context(), "http.error",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}
	writeDetail(w, status, mateauth.Message(err))
}

func statusOf(err error) int {
	switch mateauth.Kind(err) {
	case mateauth.ErrValidation:
		return http.StatusUnprocessableEntity
	case mateauth.ErrConflict:
		return http.StatusConflict
	case mateauth.ErrUnauthorized:
		return http.StatusUnauthorized
	case mateauth.ErrForbidden:
		return http.StatusForbidden
	case mateauth.ErrNotFound:
		return http.StatusNotFound
	case mateauth.ErrTooManyAttempts:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func retrySeconds(d time.Duration) int64 {
	s := int64((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
