package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// maxBody caps request bodies read by DecodeJSON.
const maxBody = 1 << 20

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Error writes err with the status its kind maps to. Public responses never
// carry details beyond the error code.
func Error(w http.ResponseWriter, r *http.Request, err error, public bool) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		if public {
			JSONError(w, http.StatusBadRequest, "validation_failed", nil)
			return
		}
		JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.Is(err, errs.ErrNotFound):
		JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, errs.ErrInvalidTransition):
		JSONError(w, http.StatusConflict, "invalid_transition", nil)
	case errors.Is(err, errs.ErrConflict):
		JSONError(w, http.StatusConflict, "conflict", nil)
	case errors.Is(err, errs.ErrUnauthorized):
		JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields. Decoding
// problems come back as validation errors on the "body" field.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Field("body", "required")
		}
		return fmt.Errorf("decode body: %w", errs.Field("body", "invalid_json"))
	}
	return nil
}

// PathID parses a positive numeric path value.
func PathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s %q: %w", name, r.PathValue(name), errs.ErrNotFound)
	}
	return uint(id), nil
}

// QueryInt returns the integer query parameter or def.
func QueryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
