package network

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var home = &AccessPoint{Ssid: "Home", Security: SecurityProtectedAccess, Strength: 80}

type memoryJournal struct {
	mtx      sync.Mutex
	attempts []*Attempt
}

func (j *memoryJournal) Record(attempt *Attempt) error {
	j.mtx.Lock()
	defer j.mtx.Unlock()

	j.attempts = append(j.attempts, attempt)
	return nil
}

func TestManager_ListAccessPoints(t *testing.T) {
	t.Run("scans with the wifi device", func(t *testing.T) {
		h := newFakeHandle(home, &AccessPoint{Ssid: "", Security: SecurityNone, Strength: 10})
		m := newTestManager(t, h)

		aps, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []*AccessPoint{
			{Ssid: "Home", Security: SecurityProtectedAccess, Strength: 80},
			{Ssid: "", Security: SecurityNone, Strength: 10},
		}, aps)
		assert.Equal(t, []string{"Devices", "RequestScan:wlan0", "AccessPoints:wlan0"}, h.Calls())
	})

	t.Run("no wifi device", func(t *testing.T) {
		h := newFakeHandle(home)
		h.devices = []*Device{{Path: "/devices/1", Interface: "eth0", Type: DeviceTypeEthernet}}
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		assert.ErrorIs(t, err, ErrResourceUnavailable)
		assert.False(t, IsBridgeError(err))
	})

	t.Run("device listing fails", func(t *testing.T) {
		h := newFakeHandle(home)
		h.devicesErr = errors.New("org.freedesktop.DBus.Error.AccessDenied")
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		assert.ErrorIs(t, err, ErrResourceUnavailable)
	})

	t.Run("scan rejected", func(t *testing.T) {
		h := newFakeHandle(home)
		h.scanErr = errors.New("scanning not allowed immediately following previous scan")
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		assert.ErrorIs(t, err, ErrScanFailed)
		assert.Contains(t, err.Error(), "previous scan")
	})
}

func TestManager_IsConnected(t *testing.T) {
	tests := []struct {
		connectivity Connectivity
		connected    bool
	}{
		{ConnectivityFull, true},
		{ConnectivityLimited, false},
		{ConnectivityPortal, false},
		{ConnectivityNone, false},
		{ConnectivityUnknown, false},
	}

	for _, test := range tests {
		t.Run(test.connectivity.String(), func(t *testing.T) {
			h := newFakeHandle()
			h.connectivity = []Connectivity{test.connectivity}
			m := newTestManager(t, h)

			connected, err := m.IsConnected(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.connected, connected)
		})
	}
}

func TestManager_Connect(t *testing.T) {
	t.Run("home network end to end", func(t *testing.T) {
		h := newFakeHandle(home)
		h.profiles = []*Profile{{Path: "/settings/stale", Id: "Home", Ssid: "Home"}}
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)
		h.ResetCalls()

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"Profiles",
			"DeleteProfile:Home",
			"Devices",
			"Connect:Home:PROTECTED_ACCESS",
		}, h.Calls())
		assert.Equal(t, &ProtectedAccessCredentials{Passphrase: "secret1"}, h.credentials)

		profiles := h.SavedProfiles()
		require.Len(t, profiles, 1)
		assert.NotEqual(t, "/settings/stale", profiles[0].Path)
	})

	t.Run("open network needs no passphrase", func(t *testing.T) {
		h := newFakeHandle(&AccessPoint{Ssid: "Cafe", Security: SecurityNone, Strength: 40})
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Cafe", CredentialFields{})
		require.NoError(t, err)
		assert.Equal(t, &NoneCredentials{}, h.credentials)
	})

	t.Run("missing passphrase fails before touching the handle", func(t *testing.T) {
		h := newFakeHandle(home)
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)
		h.ResetCalls()

		err = m.Connect(context.Background(), "Home", CredentialFields{})
		assert.ErrorIs(t, err, ErrCredentialsMissing)
		assert.Empty(t, h.Calls())
	})

	t.Run("enterprise needs an identity", func(t *testing.T) {
		h := newFakeHandle(&AccessPoint{Ssid: "Campus", Security: SecurityEnterprise, Strength: 60})
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Campus", CredentialFields{Passphrase: "secret"})
		assert.ErrorIs(t, err, ErrCredentialsMissing)

		err = m.Connect(context.Background(), "Campus", CredentialFields{Passphrase: "secret", Identity: "joe"})
		require.NoError(t, err)
		assert.Equal(t, &EnterpriseCredentials{Identity: "joe", Passphrase: "secret"}, h.credentials)
	})

	t.Run("deactivated connection deletes the new profile", func(t *testing.T) {
		h := newFakeHandle(home)
		h.connectState = StateDeactivated
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrConnectFailed)
		assert.False(t, IsBridgeError(err))

		assert.Empty(t, h.SavedProfiles())

		calls := h.Calls()
		require.GreaterOrEqual(t, len(calls), 2)
		assert.Equal(t, []string{"Connect:Home:PROTECTED_ACCESS", "DeleteProfile:Home"}, calls[len(calls)-2:])
	})

	t.Run("stale profiles and the failed one are all deleted", func(t *testing.T) {
		h := newFakeHandle(home)
		h.profiles = []*Profile{
			{Path: "/settings/old-a", Id: "Home", Ssid: "Home"},
			{Path: "/settings/old-b", Id: "Home 1", Ssid: "Home"},
			{Path: "/settings/cafe", Id: "Cafe", Ssid: "Cafe"},
		}
		h.connectState = StateDeactivated
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)
		h.ResetCalls()

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrConnectFailed)

		assert.Equal(t, []string{
			"Profiles",
			"DeleteProfile:Home",
			"DeleteProfile:Home",
			"Devices",
			"Connect:Home:PROTECTED_ACCESS",
			"DeleteProfile:Home",
		}, h.Calls())

		profiles := h.SavedProfiles()
		require.Len(t, profiles, 1)
		assert.Equal(t, "/settings/cafe", profiles[0].Path)
	})

	t.Run("only the failed profile is deleted when a stale one reappears", func(t *testing.T) {
		h := newFakeHandle(home)
		h.connectState = StateDeactivated
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)

		// saved by someone else while the attempt was on its way
		stale := &Profile{Path: "/settings/other", Id: "Home", Ssid: "Home"}
		h.devicesHook = func() {
			h.profiles = append(h.profiles, stale)
		}

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrConnectFailed)

		assert.Equal(t, []*Profile{stale}, h.SavedProfiles())
	})

	t.Run("unknown and deactivating states fail", func(t *testing.T) {
		for _, state := range []ConnectionState{StateUnknown, StateDeactivating} {
			h := newFakeHandle(home)
			h.connectState = state
			m := newTestManager(t, h)

			err := m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
			assert.ErrorIs(t, err, ErrConnectFailed, state.String())
			assert.Empty(t, h.SavedProfiles(), state.String())
		}
	})

	t.Run("activating counts as success", func(t *testing.T) {
		h := newFakeHandle(home)
		h.connectState = StateActivating
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.NoError(t, err)
		assert.Len(t, h.SavedProfiles(), 1)
	})

	t.Run("connect primitive error", func(t *testing.T) {
		h := newFakeHandle(home)
		h.connectErr = errors.New("secrets were required, but not provided")
		h.connectErrSaves = true
		h.profiles = []*Profile{{Path: "/settings/stale", Id: "Home", Ssid: "Home"}}
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)
		h.ResetCalls()

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrConnectFailed)
		assert.Contains(t, err.Error(), "secrets were required")

		// no profile came back, so the ssid is cleaned up once more
		assert.Equal(t, []string{
			"Profiles",
			"DeleteProfile:Home",
			"Devices",
			"Connect:Home:PROTECTED_ACCESS",
			"Profiles",
			"DeleteProfile:Home",
		}, h.Calls())
		assert.Empty(t, h.SavedProfiles())
	})

	t.Run("no wifi device", func(t *testing.T) {
		h := newFakeHandle(home)
		m := newTestManager(t, h)

		_, err := m.ListAccessPoints(context.Background())
		require.NoError(t, err)

		h.mtx.Lock()
		h.devices = nil
		h.mtx.Unlock()

		h.mtx.Lock()
		h.profiles = []*Profile{{Path: "/settings/stale", Id: "Home", Ssid: "Home"}}
		h.mtx.Unlock()
		h.ResetCalls()

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrResourceUnavailable)

		assert.NotContains(t, h.Calls(), "Connect:Home:PROTECTED_ACCESS")
		assert.Contains(t, h.Calls(), "DeleteProfile:Home")
		assert.Empty(t, h.SavedProfiles())
	})

	t.Run("scans when the ssid is unknown", func(t *testing.T) {
		h := newFakeHandle(home)
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		require.NoError(t, err)

		assert.Equal(t, []string{"Devices", "RequestScan:wlan0", "AccessPoints:wlan0"}, h.Calls()[:3])
	})

	t.Run("ssid not around", func(t *testing.T) {
		h := newFakeHandle(home)
		m := newTestManager(t, h)

		err := m.Connect(context.Background(), "Office", CredentialFields{Passphrase: "secret1"})
		assert.ErrorIs(t, err, ErrAccessPointNotFound)

		err = m.Connect(context.Background(), "", CredentialFields{})
		assert.ErrorIs(t, err, ErrAccessPointNotFound)
	})

	t.Run("attempts are journaled", func(t *testing.T) {
		h := newFakeHandle(home)
		h.connectState = StateDeactivated
		m := newTestManager(t, h)
		journal := &memoryJournal{}
		m.journal = journal

		err := m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		require.Error(t, err)

		h.mtx.Lock()
		h.connectState = StateActivated
		h.mtx.Unlock()

		err = m.Connect(context.Background(), "Home", CredentialFields{Passphrase: "secret1"})
		require.NoError(t, err)

		require.Len(t, journal.attempts, 2)

		failed := journal.attempts[0]
		assert.Equal(t, "Home", failed.Ssid)
		assert.Equal(t, SecurityProtectedAccess, failed.Security)
		assert.Equal(t, StateDeactivated, failed.State)
		assert.False(t, failed.Succeeded())
		assert.False(t, failed.Finished.Before(failed.Started))

		assert.True(t, journal.attempts[1].Succeeded())
		assert.Equal(t, StateActivated, journal.attempts[1].State)
	})
}

func TestManager_WaitForConnection(t *testing.T) {
	t.Run("resolves on the k-th poll", func(t *testing.T) {
		h := newFakeHandle()
		h.connectivity = []Connectivity{
			ConnectivityNone,
			ConnectivityLimited,
			ConnectivityPortal,
			ConnectivityNone,
			ConnectivityFull,
		}
		m := newTestManager(t, h)

		err := m.WaitForConnection(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, h.ConnectivityCalls())
	})

	t.Run("gives up with the context", func(t *testing.T) {
		h := newFakeHandle()
		h.connectivity = []Connectivity{ConnectivityNone}
		m := newTestManager(t, h)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := m.WaitForConnection(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Greater(t, h.ConnectivityCalls(), 1)
	})

	t.Run("gives up when the bridge is closed", func(t *testing.T) {
		b := NewBridge(func() (Handle, error) {
			return nil, errors.New("no system bus")
		}, nil)
		m := NewManager(&Config{Bridge: b, WaitInterval: time.Millisecond})

		err := m.WaitForConnection(context.Background())
		assert.ErrorIs(t, err, ErrBridgeClosed)
	})
}

func TestManager_Subscribe(t *testing.T) {
	h := newFakeHandle()
	h.connectivity = []Connectivity{ConnectivityNone, ConnectivityNone, ConnectivityLimited, ConnectivityFull}
	m := newTestManager(t, h)

	client := m.Subscribe()

	assert.Equal(t, false, <-client.Updates)
	assert.Equal(t, true, <-client.Updates)

	client.Cancel()

	_, ok := <-client.Updates
	assert.False(t, ok)

	other := m.Subscribe()
	defer other.Cancel()
	assert.NotEqual(t, client.Id, other.Id)
}

func TestNewCredentials(t *testing.T) {
	tests := []struct {
		name     string
		security SecurityClass
		fields   CredentialFields
		expected Credentials
		missing  bool
	}{
		{"open", SecurityNone, CredentialFields{}, &NoneCredentials{}, false},
		{"open ignores fields", SecurityNone, CredentialFields{Passphrase: "x"}, &NoneCredentials{}, false},
		{"wep", SecuritySharedKey, CredentialFields{Passphrase: "abcde"}, &SharedKeyCredentials{Passphrase: "abcde"}, false},
		{"wep without passphrase", SecuritySharedKey, CredentialFields{}, nil, true},
		{"wpa", SecurityProtectedAccess, CredentialFields{Passphrase: "secret1"}, &ProtectedAccessCredentials{Passphrase: "secret1"}, false},
		{"wpa without passphrase", SecurityProtectedAccess, CredentialFields{Identity: "joe"}, nil, true},
		{"enterprise", SecurityEnterprise, CredentialFields{Passphrase: "p", Identity: "joe"}, &EnterpriseCredentials{Identity: "joe", Passphrase: "p"}, false},
		{"enterprise without identity", SecurityEnterprise, CredentialFields{Passphrase: "p"}, nil, true},
		{"enterprise without passphrase", SecurityEnterprise, CredentialFields{Identity: "joe"}, nil, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			credentials, err := NewCredentials(test.security, test.fields)
			if test.missing {
				assert.ErrorIs(t, err, ErrCredentialsMissing)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, credentials)
			assert.Equal(t, test.security, credentials.Security())
		})
	}
}
