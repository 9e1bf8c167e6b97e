package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medride/dispatch/core/dispatch"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrValidation):
		writeErrorStatus(w, http.StatusBadRequest, err)
	case errors.Is(err, dispatch.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, err)
	case errors.Is(err, dispatch.ErrConcurrentModification):
		writeErrorStatus(w, http.StatusConflict, err)
	case errors.Is(err, dispatch.ErrRideExpired):
		writeErrorStatus(w, http.StatusGone, err)
	default:
		writeErrorStatus(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return false
	}
	return true
}
