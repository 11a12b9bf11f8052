package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"pickup-dispatch-service/internal/api/authn"
	"pickup-dispatch-service/internal/domain"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeDomainError maps service errors onto HTTP statuses. Anything not
// recognised is logged and reported as 500 without details.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		te *domain.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, r, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNoCenterAvailable):
		writeJSON(w, r, http.StatusConflict, errorBody{Error: "no center available in range", Retryable: true})
	case errors.Is(err, domain.ErrNoCollectorAvailable):
		writeJSON(w, r, http.StatusConflict, errorBody{Error: "no collector available, try again later", Retryable: true})
	case errors.As(err, &te):
		writeJSON(w, r, http.StatusConflict, errorBody{Error: te.Error(), CurrentStatus: string(te.From)})
	case errors.Is(err, domain.ErrRouteUnavailable):
		writeJSON(w, r, http.StatusBadGateway, errorBody{Error: "route unavailable", Retryable: true})
	case errors.Is(err, domain.ErrGeocodeUnavailable):
		writeJSON(w, r, http.StatusBadGateway, errorBody{Error: "address lookup unavailable", Retryable: true})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := authn.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
	}
	return p, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue(name)))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorBody{Error: name + " must be a uuid", Field: name})
		return uuid.Nil, false
	}
	return id, true
}
