package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xploited/ubiquitousd/connectivity"
	"github.com/xploited/ubiquitousd/network"
	"github.com/xploited/ubiquitousd/network/mock"
)

type fakePairing struct {
	mtx      sync.Mutex
	started  chan struct{}
	stopped  bool
	startErr error
}

func newFakePairing() *fakePairing {
	return &fakePairing{started: make(chan struct{})}
}

func (p *fakePairing) Start() error {
	if p.startErr != nil {
		return p.startErr
	}

	close(p.started)
	return nil
}

func (p *fakePairing) Stop() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.stopped = true
	return nil
}

func (p *fakePairing) isStopped() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.stopped
}

type fakeApi struct {
	served chan net.Addr
}

func (a *fakeApi) Serve(l net.Listener) error {
	a.served <- l.Addr()
	return http.Serve(l, http.NotFoundHandler())
}

func newManager(h *mock.Handle) *network.Manager {
	bridge := network.NewBridge(func() (network.Handle, error) {
		return h, nil
	}, nil)

	return network.NewManager(&network.Config{
		Bridge:         bridge,
		WaitInterval:   time.Millisecond,
		StatusInterval: time.Millisecond,
	})
}

func TestRun(t *testing.T) {
	m := newManager(mock.New(&mock.Config{Networks: mock.DefaultNetworks()}))
	pairing := newFakePairing()
	api := &fakeApi{served: make(chan net.Addr, 1)}

	d := New(&Config{
		Network:     m,
		Api:         api,
		Pairing:     pairing,
		Listen:      "127.0.0.1:0",
		StartupWait: 10 * time.Millisecond,
	})

	result := make(chan error, 1)
	go func() {
		result <- d.Run()
	}()

	select {
	case <-pairing.started:
	case <-time.After(5 * time.Second):
		t.Fatal("pairing was not started")
	}

	addr := <-api.served
	res, err := http.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	require.NoError(t, m.Connect(context.Background(), "Cafe", network.CredentialFields{}))

	assert.Eventually(t, func() bool {
		return d.Connectivity() == connectivity.Online
	}, 5*time.Second, time.Millisecond)

	d.Shutdown()
	d.Shutdown()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down")
	}

	assert.True(t, pairing.isStopped())
}

func TestRunPairingFailure(t *testing.T) {
	pairing := newFakePairing()
	pairing.startErr = errors.New("no adapter")

	d := New(&Config{
		Network: newManager(mock.New(&mock.Config{})),
		Pairing: pairing,
	})

	err := d.Run()
	assert.ErrorContains(t, err, "no adapter")
}

func TestRunListenFailure(t *testing.T) {
	d := New(&Config{
		Network: newManager(mock.New(&mock.Config{})),
		Api:     &fakeApi{served: make(chan net.Addr, 1)},
		Listen:  "256.0.0.1:0",
	})

	assert.Error(t, d.Run())
}

func TestRunNetworkServiceGone(t *testing.T) {
	bridge := network.NewBridge(func() (network.Handle, error) {
		return nil, errors.New("no system bus")
	}, nil)

	d := New(&Config{
		Network: network.NewManager(&network.Config{
			Bridge:         bridge,
			WaitInterval:   time.Millisecond,
			StatusInterval: time.Millisecond,
		}),
		StartupWait: time.Second,
	})

	result := make(chan error, 1)
	go func() {
		result <- d.Run()
	}()

	select {
	case err := <-result:
		assert.ErrorContains(t, err, "stopped reporting")
	case <-time.After(5 * time.Second):
		t.Fatal("daemon kept running without a network service")
	}
}
