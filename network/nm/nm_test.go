package nm

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xploited/ubiquitousd/network"
)

func TestSecurityClass(t *testing.T) {
	tests := []struct {
		name     string
		flags    uint32
		wpa      uint32
		rsn      uint32
		expected network.SecurityClass
	}{
		{"open", 0, 0, 0, network.SecurityNone},
		{"wep", apFlagsPrivacy, 0, 0, network.SecuritySharedKey},
		{"wpa", apFlagsPrivacy, 0x100 | 0x4, 0, network.SecurityProtectedAccess},
		{"wpa2", apFlagsPrivacy, 0, 0x100 | 0x8, network.SecurityProtectedAccess},
		{"wpa3", apFlagsPrivacy, 0, 0x400 | 0x8, network.SecurityProtectedAccess},
		{"enterprise", apFlagsPrivacy, 0, apSecKeyMgmt8021X | 0x8, network.SecurityEnterprise},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, securityClass(test.flags, test.wpa, test.rsn))
		})
	}
}

func TestNewConnectionSettings(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		settings, err := newConnectionSettings("Cafe", &network.NoneCredentials{})
		require.NoError(t, err)

		assert.Equal(t, []byte("Cafe"), settings["802-11-wireless"]["ssid"].Value())
		assert.Equal(t, "Cafe", settings["connection"]["id"].Value())
		assert.NotContains(t, settings, "802-11-wireless-security")
	})

	t.Run("protected access", func(t *testing.T) {
		settings, err := newConnectionSettings("Home", &network.ProtectedAccessCredentials{Passphrase: "secret1"})
		require.NoError(t, err)

		security := settings["802-11-wireless-security"]
		assert.Equal(t, "wpa-psk", security["key-mgmt"].Value())
		assert.Equal(t, "secret1", security["psk"].Value())
	})

	t.Run("shared key", func(t *testing.T) {
		settings, err := newConnectionSettings("Old", &network.SharedKeyCredentials{Passphrase: "abcde"})
		require.NoError(t, err)

		security := settings["802-11-wireless-security"]
		assert.Equal(t, "none", security["key-mgmt"].Value())
		assert.Equal(t, uint32(1), security["wep-key-type"].Value())
		assert.Equal(t, "abcde", security["wep-key0"].Value())
	})

	t.Run("enterprise", func(t *testing.T) {
		settings, err := newConnectionSettings("Campus", &network.EnterpriseCredentials{Identity: "joe", Passphrase: "p"})
		require.NoError(t, err)

		assert.Equal(t, "wpa-eap", settings["802-11-wireless-security"]["key-mgmt"].Value())
		assert.Equal(t, "joe", settings["802-1x"]["identity"].Value())
		assert.Equal(t, "p", settings["802-1x"]["password"].Value())
	})
}

func TestProfileFromSettings(t *testing.T) {
	profile := profileFromSettings("/org/freedesktop/NetworkManager/Settings/3", connectionSettings{
		"connection": {
			"id": dbus.MakeVariant("Home 1"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte("Home")),
		},
	})

	assert.Equal(t, &network.Profile{
		Path: "/org/freedesktop/NetworkManager/Settings/3",
		Id:   "Home 1",
		Ssid: "Home",
	}, profile)

	wired := profileFromSettings("/org/freedesktop/NetworkManager/Settings/1", connectionSettings{
		"connection": {
			"id": dbus.MakeVariant("Wired connection 1"),
		},
	})
	assert.Empty(t, wired.Ssid)
}

func TestWepKeyType(t *testing.T) {
	assert.Equal(t, uint32(1), wepKeyType("0123456789"))
	assert.Equal(t, uint32(2), wepKeyType("correct horse battery"))
}
