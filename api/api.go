package api

import (
	"context"
	"net"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/xploited/ubiquitousd/network"
)

// Network is the part of the network manager exposed over HTTP.
type Network interface {
	ListAccessPoints(ctx context.Context) ([]*network.AccessPoint, error)
	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context, ssid string, fields network.CredentialFields) error
	Subscribe() *network.Client
}

// AttemptStore reads back the journal of connect attempts.
type AttemptStore interface {
	Attempts(limit int) ([]*network.Attempt, error)
}

type Config struct {
	Network  Network
	Attempts AttemptStore
	Log      Logger
}

type Api struct {
	network  Network
	attempts AttemptStore
	router   *mux.Router
	log      Logger
}

func New(config *Config) *Api {
	api := &Api{
		network:  config.Network,
		attempts: config.Attempts,
		router:   mux.NewRouter(),
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Handle("/api/v1/networks", api.handleGetNetworks()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/connectivity", api.handleGetConnectivity()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/connectivity/events", api.handleGetConnectivityEvents()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/connections", api.handlePostConnection()).Methods(http.MethodPost)
	api.router.Handle("/api/v1/connections/attempts", api.handleGetAttempts()).Methods(http.MethodGet)

	return api
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("unable to serve api: %v", err)
	}

	return nil
}
