package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xploited/ubiquitousd/network"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (a *Api) jsonResponse(w http.ResponseWriter, v interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.log.Errorf("Could not respond with JSON: %v", err)
	}
}

func (a *Api) jsonError(w http.ResponseWriter, message string, code int) {
	a.jsonResponse(w, &errorResponse{Error: message}, code)
}

// networkError responds with the status code matching the kind of err.
func (a *Api) networkError(w http.ResponseWriter, err error) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		a.log.Warnf("Network request failed: %v", err)
	}

	a.jsonError(w, err.Error(), code)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, network.ErrAccessPointNotFound):
		return http.StatusNotFound
	case errors.Is(err, network.ErrCredentialsMissing):
		return http.StatusBadRequest
	case errors.Is(err, network.ErrResourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, network.ErrConnectFailed), errors.Is(err, network.ErrScanFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
