package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/xploited/ubiquitousd/network"
)

const defaultAttemptsLimit = 20

type postConnectionRequest struct {
	Ssid       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
	Identity   string `json:"identity"`
}

// connectionResponse acknowledges an accepted connect request. The link may
// still be activating; connectivity reports when it is up.
type connectionResponse struct {
	Ssid string `json:"ssid"`
}

type attemptResponse struct {
	Ssid      string    `json:"ssid"`
	Security  string    `json:"security"`
	State     string    `json:"state"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

func (a *Api) handlePostConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := postConnectionRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = a.network.Connect(r.Context(), req.Ssid, network.CredentialFields{
			Passphrase: req.Passphrase,
			Identity:   req.Identity,
		})
		if err != nil {
			a.networkError(w, err)
			return
		}

		a.jsonResponse(w, &connectionResponse{Ssid: req.Ssid}, http.StatusOK)
	}
}

func (a *Api) handleGetAttempts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.attempts == nil {
			a.jsonError(w, "No attempt journal configured", http.StatusNotFound)
			return
		}

		limit := defaultAttemptsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				a.jsonError(w, "Invalid limit "+v, http.StatusBadRequest)
				return
			}
			limit = n
		}

		attempts, err := a.attempts.Attempts(limit)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		res := []*attemptResponse{}
		for _, attempt := range attempts {
			res = append(res, &attemptResponse{
				Ssid:      attempt.Ssid,
				Security:  attempt.Security.String(),
				State:     attempt.State.String(),
				Succeeded: attempt.Succeeded(),
				Error:     attempt.Error,
				Started:   attempt.Started,
				Finished:  attempt.Finished,
			})
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
