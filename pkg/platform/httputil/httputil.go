package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the wire shape of every error response.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// WriteError translates domain and sentinel errors into a consistent JSON
// error envelope. Unknown errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		WriteJSON(w, statusFor(de.Code), errorEnvelope{
			Error:   string(de.Code),
			Message: de.Message,
			Field:   de.Field,
		})
		return
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		WriteJSON(w, http.StatusNotFound, errorEnvelope{Error: string(domainerrors.CodeNotFound)})
		return
	}
	if errors.Is(err, sentinel.ErrConflict) {
		WriteJSON(w, http.StatusConflict, errorEnvelope{Error: string(domainerrors.CodeConflict)})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, errorEnvelope{Error: string(domainerrors.CodeInternal)})
}

func statusFor(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeConflict, domainerrors.CodeEscrowAlreadyOpen:
		return http.StatusConflict
	case domainerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case domainerrors.CodeInvalidParameter:
		return http.StatusBadRequest
	case domainerrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		// Precondition failures: the request was well-formed but the
		// protocol state or compliance rules reject it.
		return http.StatusUnprocessableEntity
	}
}

// Decode parses a JSON request body into T, logging and answering 400 on
// malformed input. The bool result reports whether the handler may proceed.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "malformed request body", "error", err)
		WriteError(w, domainerrors.New(domainerrors.CodeInvalidParameter, "malformed JSON body"))
		return req, false
	}
	return req, true
}
