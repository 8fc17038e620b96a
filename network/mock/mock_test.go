package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xploited/ubiquitousd/network"
)

func newManager(h *Handle) *network.Manager {
	bridge := network.NewBridge(func() (network.Handle, error) {
		return h, nil
	}, nil)

	return network.NewManager(&network.Config{
		Bridge:       bridge,
		WaitInterval: time.Millisecond,
	})
}

func TestMockThroughManager(t *testing.T) {
	h := New(&Config{Networks: DefaultNetworks()})
	m := newManager(h)
	ctx := context.Background()

	aps, err := m.ListAccessPoints(ctx)
	require.NoError(t, err)
	assert.Len(t, aps, 4)

	connected, err := m.IsConnected(ctx)
	require.NoError(t, err)
	assert.False(t, connected)

	err = m.Connect(ctx, "Home", network.CredentialFields{Passphrase: "wrong"})
	assert.ErrorIs(t, err, network.ErrConnectFailed)

	profiles, _ := h.Profiles()
	assert.Empty(t, profiles)

	err = m.Connect(ctx, "Home", network.CredentialFields{Passphrase: "secret1"})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.WaitForConnection(waitCtx))

	// reconnecting replaces the saved profile instead of piling up
	err = m.Connect(ctx, "Home", network.CredentialFields{Passphrase: "secret1"})
	require.NoError(t, err)

	profiles, _ = h.Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "Home", profiles[0].Ssid)
}

func TestMockWithoutWifi(t *testing.T) {
	m := newManager(New(&Config{Networks: DefaultNetworks(), NoWifi: true}))

	_, err := m.ListAccessPoints(context.Background())
	assert.ErrorIs(t, err, network.ErrResourceUnavailable)
}
