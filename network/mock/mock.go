// Package mock provides a simulated network service for running the daemon
// without NetworkManager.
package mock

import (
	"fmt"
	"sync"

	"github.com/go-errors/errors"
	"github.com/xploited/ubiquitousd/network"
)

// check Handle compliance to its interface during compile time
var _ network.Handle = (*Handle)(nil)

// Network is a simulated access point and the secret that joins it.
type Network struct {
	AccessPoint network.AccessPoint
	Passphrase  string
	Identity    string
}

type Config struct {
	Networks []*Network

	// NoWifi hides the wireless device.
	NoWifi bool
}

// Handle keeps saved profiles and the active connection in memory. Joining
// a network succeeds when the credentials match the configured secrets.
type Handle struct {
	mtx          sync.Mutex
	networks     []*Network
	noWifi       bool
	profiles     []*network.Profile
	nextProfile  int
	connectivity network.Connectivity
}

func New(config *Config) *Handle {
	return &Handle{
		networks:     config.Networks,
		noWifi:       config.NoWifi,
		connectivity: network.ConnectivityNone,
	}
}

// DefaultNetworks is what the daemon simulates with --net=mock.
func DefaultNetworks() []*Network {
	return []*Network{
		{AccessPoint: network.AccessPoint{Ssid: "Home", Security: network.SecurityProtectedAccess, Strength: 80}, Passphrase: "secret1"},
		{AccessPoint: network.AccessPoint{Ssid: "Cafe", Security: network.SecurityNone, Strength: 55}},
		{AccessPoint: network.AccessPoint{Ssid: "Campus", Security: network.SecurityEnterprise, Strength: 40}, Identity: "student", Passphrase: "campus"},
		{AccessPoint: network.AccessPoint{Ssid: "", Security: network.SecurityProtectedAccess, Strength: 20}},
	}
}

func (h *Handle) Devices() ([]*network.Device, error) {
	devices := []*network.Device{
		{Path: "/mock/devices/0", Interface: "lo", Type: network.DeviceTypeOther},
	}

	if !h.noWifi {
		devices = append(devices, &network.Device{Path: "/mock/devices/1", Interface: "wlan0", Type: network.DeviceTypeWifi})
	}

	return devices, nil
}

func (h *Handle) RequestScan(device *network.Device) error {
	if device.Type != network.DeviceTypeWifi {
		return errors.Errorf("device %v can't scan", device.Interface)
	}

	return nil
}

func (h *Handle) AccessPoints(device *network.Device) ([]*network.AccessPoint, error) {
	var aps []*network.AccessPoint

	for _, n := range h.networks {
		ap := n.AccessPoint
		aps = append(aps, &ap)
	}

	return aps, nil
}

func (h *Handle) Profiles() ([]*network.Profile, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	return append([]*network.Profile{}, h.profiles...), nil
}

func (h *Handle) DeleteProfile(profile *network.Profile) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for i, p := range h.profiles {
		if p.Path == profile.Path {
			h.profiles = append(h.profiles[:i], h.profiles[i+1:]...)
			return nil
		}
	}

	return errors.Errorf("unknown connection %v", profile.Path)
}

func (h *Handle) Connect(device *network.Device, ap *network.AccessPoint, credentials network.Credentials) (*network.Profile, network.ConnectionState, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.nextProfile++
	profile := &network.Profile{
		Path: fmt.Sprintf("/mock/settings/%d", h.nextProfile),
		Id:   ap.Ssid,
		Ssid: ap.Ssid,
	}
	h.profiles = append(h.profiles, profile)

	if !h.accepts(ap.Ssid, credentials) {
		h.connectivity = network.ConnectivityNone
		return profile, network.StateDeactivated, nil
	}

	h.connectivity = network.ConnectivityFull

	return profile, network.StateActivated, nil
}

func (h *Handle) accepts(ssid string, credentials network.Credentials) bool {
	for _, n := range h.networks {
		if n.AccessPoint.Ssid != ssid || n.AccessPoint.Security != credentials.Security() {
			continue
		}

		switch c := credentials.(type) {
		case *network.NoneCredentials:
			return true
		case *network.SharedKeyCredentials:
			return c.Passphrase == n.Passphrase
		case *network.ProtectedAccessCredentials:
			return c.Passphrase == n.Passphrase
		case *network.EnterpriseCredentials:
			return c.Passphrase == n.Passphrase && c.Identity == n.Identity
		}
	}

	return false
}

func (h *Handle) Connectivity() (network.Connectivity, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	return h.connectivity, nil
}
