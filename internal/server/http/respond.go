package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/sakhatype/internal/errs"
)

type detail struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, detail{Detail: msg})
}

// statusFor maps error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter), errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a detail body. Internal errors are logged and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal server error"
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		msg = "could not validate credentials"
	case http.StatusBadRequest:
		if errors.Is(err, errs.ErrAlreadyExists) {
			msg = "username already registered"
		}
	case http.StatusNotFound:
		msg = "user not found"
	case http.StatusTooManyRequests:
		msg = "too many failed login attempts, try again later"
	}
	writeDetail(w, code, msg)
}
