// Package nm talks to NetworkManager over the D-Bus system bus. A
// NetworkManager is a network.Handle: it blocks on every call and must only
// be used from the bridge worker that opened it.
package nm

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/xploited/ubiquitousd/network"
)

const (
	busName        = "org.freedesktop.NetworkManager"
	rootPath       = "/org/freedesktop/NetworkManager"
	settingsPath   = "/org/freedesktop/NetworkManager/Settings"
	rootIface      = "org.freedesktop.NetworkManager"
	deviceIface    = "org.freedesktop.NetworkManager.Device"
	wirelessIface  = "org.freedesktop.NetworkManager.Device.Wireless"
	apIface        = "org.freedesktop.NetworkManager.AccessPoint"
	settingsIface  = "org.freedesktop.NetworkManager.Settings"
	profileIface   = "org.freedesktop.NetworkManager.Settings.Connection"
	activeIface    = "org.freedesktop.NetworkManager.Connection.Active"
	defaultTimeout = 30 * time.Second
	defaultPoll    = 500 * time.Millisecond
)

// check NetworkManager compliance to its interface during compile time
var _ network.Handle = (*NetworkManager)(nil)

type Config struct {
	Logger Logger

	// ActivationTimeout bounds how long Connect waits for a connection to
	// leave the activating state.
	ActivationTimeout time.Duration

	// ActivationPoll is how often the activation state is read.
	ActivationPoll time.Duration
}

type NetworkManager struct {
	log               Logger
	conn              *dbus.Conn
	obj               dbus.BusObject
	activationTimeout time.Duration
	activationPoll    time.Duration
}

// Open connects to the system bus. It is meant to be passed to
// network.NewBridge so that the connection is made on the worker.
func Open(config *Config) func() (network.Handle, error) {
	return func() (network.Handle, error) {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, errors.Errorf("could not connect to system bus: %v", err)
		}

		return New(conn, config), nil
	}
}

func New(conn *dbus.Conn, config *Config) *NetworkManager {
	n := &NetworkManager{
		conn:              conn,
		obj:               conn.Object(busName, rootPath),
		activationTimeout: config.ActivationTimeout,
		activationPoll:    config.ActivationPoll,
	}

	if config.Logger != nil {
		n.log = config.Logger
	} else {
		n.log = noopLogger{}
	}

	if n.activationTimeout <= 0 {
		n.activationTimeout = defaultTimeout
	}

	if n.activationPoll <= 0 {
		n.activationPoll = defaultPoll
	}

	return n
}

func (n *NetworkManager) object(path dbus.ObjectPath) dbus.BusObject {
	return n.conn.Object(busName, path)
}

func (n *NetworkManager) Connectivity() (network.Connectivity, error) {
	var connectivity uint32

	err := n.obj.Call(rootIface+".CheckConnectivity", 0).Store(&connectivity)
	if err != nil {
		return network.ConnectivityUnknown, errors.Errorf("could not check connectivity: %v", err)
	}

	return network.Connectivity(connectivity), nil
}

func (n *NetworkManager) activeState(path dbus.ObjectPath) (network.ConnectionState, error) {
	v, err := n.object(path).GetProperty(activeIface + ".State")
	if err != nil {
		return network.StateUnknown, errors.Errorf("could not get state of %v: %v", path, err)
	}

	state, ok := v.Value().(uint32)
	if !ok {
		return network.StateUnknown, errors.Errorf("could not convert state: %v", v)
	}

	return network.ConnectionState(state), nil
}

// waitForActivation reads the state of an active connection until it stops
// activating or the activation timeout passes.
func (n *NetworkManager) waitForActivation(path dbus.ObjectPath) network.ConnectionState {
	deadline := time.Now().Add(n.activationTimeout)

	for {
		state, err := n.activeState(path)
		if err != nil {
			// the active connection object disappears once it is torn down
			n.log.Debugf("Active connection %v is gone: %v", path, err)
			return network.StateDeactivated
		}

		if state != network.StateActivating || time.Now().After(deadline) {
			return state
		}

		time.Sleep(n.activationPoll)
	}
}
