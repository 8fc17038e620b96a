package nm

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/xploited/ubiquitousd/network"
)

type connectionSettings = map[string]map[string]dbus.Variant

func (n *NetworkManager) Profiles() ([]*network.Profile, error) {
	var paths []dbus.ObjectPath

	err := n.object(settingsPath).Call(settingsIface+".ListConnections", 0).Store(&paths)
	if err != nil {
		return nil, errors.Errorf("could not list connections: %v", err)
	}

	var profiles []*network.Profile

	for _, path := range paths {
		var settings connectionSettings

		err := n.object(path).Call(profileIface+".GetSettings", 0).Store(&settings)
		if err != nil {
			n.log.Debugf("Could not get settings of %v: %v", path, err)
			continue
		}

		profiles = append(profiles, profileFromSettings(path, settings))
	}

	return profiles, nil
}

func profileFromSettings(path dbus.ObjectPath, settings connectionSettings) *network.Profile {
	profile := &network.Profile{Path: string(path)}

	if connection, ok := settings["connection"]; ok {
		if id, ok := connection["id"]; ok {
			profile.Id, _ = id.Value().(string)
		}
	}

	if wireless, ok := settings["802-11-wireless"]; ok {
		if ssid, ok := wireless["ssid"]; ok {
			if b, ok := ssid.Value().([]byte); ok {
				profile.Ssid = string(b)
			}
		}
	}

	return profile
}

func (n *NetworkManager) DeleteProfile(profile *network.Profile) error {
	call := n.object(dbus.ObjectPath(profile.Path)).Call(profileIface+".Delete", 0)
	if call.Err != nil {
		return errors.Errorf("could not delete connection %v: %v", profile.Id, call.Err)
	}

	return nil
}

// Connect adds a profile for the access point and activates it on the
// device. It returns the state once the connection left the activating
// state, or the activating state if that took too long.
func (n *NetworkManager) Connect(device *network.Device, ap *network.AccessPoint, credentials network.Credentials) (*network.Profile, network.ConnectionState, error) {
	settings, err := newConnectionSettings(ap.Ssid, credentials)
	if err != nil {
		return nil, network.StateUnknown, err
	}

	var profilePath, activePath dbus.ObjectPath

	err = n.obj.Call(rootIface+".AddAndActivateConnection", 0,
		settings, dbus.ObjectPath(device.Path), dbus.ObjectPath("/")).Store(&profilePath, &activePath)
	if err != nil {
		return nil, network.StateUnknown, errors.Errorf("could not add and activate connection: %v", err)
	}

	profile := &network.Profile{
		Path: string(profilePath),
		Id:   ap.Ssid,
		Ssid: ap.Ssid,
	}

	n.log.Debugf("Activating %v through %v", profilePath, activePath)

	return profile, n.waitForActivation(activePath), nil
}

// newConnectionSettings builds the NetworkManager settings for joining ssid
// with the given credentials.
func newConnectionSettings(ssid string, credentials network.Credentials) (connectionSettings, error) {
	settings := connectionSettings{
		"connection": {
			"id":   dbus.MakeVariant(ssid),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {
			"method": dbus.MakeVariant("auto"),
		},
		"ipv6": {
			"method": dbus.MakeVariant("auto"),
		},
	}

	switch c := credentials.(type) {
	case *network.NoneCredentials:
	case *network.SharedKeyCredentials:
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt":     dbus.MakeVariant("none"),
			"wep-key-type": dbus.MakeVariant(wepKeyType(c.Passphrase)),
			"wep-key0":     dbus.MakeVariant(c.Passphrase),
		}
	case *network.ProtectedAccessCredentials:
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(c.Passphrase),
		}
	case *network.EnterpriseCredentials:
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-eap"),
		}
		settings["802-1x"] = map[string]dbus.Variant{
			"eap":         dbus.MakeVariant([]string{"peap"}),
			"identity":    dbus.MakeVariant(c.Identity),
			"password":    dbus.MakeVariant(c.Passphrase),
			"phase2-auth": dbus.MakeVariant("mschapv2"),
		}
	default:
		return nil, errors.Errorf("unsupported credentials %T", credentials)
	}

	return settings, nil
}

// wepKeyType is 1 for raw hex or ascii keys and 2 for passphrases.
func wepKeyType(key string) uint32 {
	switch len(key) {
	case 5, 10, 13, 26:
		return 1
	default:
		return 2
	}
}
