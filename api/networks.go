package api

import (
	"net/http"
)

type networkResponse struct {
	Ssid     string `json:"ssid"`
	Security string `json:"security"`
	Strength uint32 `json:"strength"`
}

type connectivityResponse struct {
	Connected bool `json:"connected"`
}

func (a *Api) handleGetNetworks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aps, err := a.network.ListAccessPoints(r.Context())
		if err != nil {
			a.networkError(w, err)
			return
		}

		res := []*networkResponse{}
		for _, ap := range aps {
			if ap.Ssid == "" {
				continue
			}

			res = append(res, &networkResponse{
				Ssid:     ap.Ssid,
				Security: ap.Security.String(),
				Strength: ap.Strength,
			})
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}

func (a *Api) handleGetConnectivity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected, err := a.network.IsConnected(r.Context())
		if err != nil {
			a.networkError(w, err)
			return
		}

		a.jsonResponse(w, &connectivityResponse{Connected: connected}, http.StatusOK)
	}
}
