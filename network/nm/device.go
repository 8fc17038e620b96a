package nm

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/xploited/ubiquitousd/network"
)

// NM_DEVICE_TYPE values
const (
	deviceTypeEthernet uint32 = 1
	deviceTypeWifi     uint32 = 2
)

// NM80211ApFlags and NM80211ApSecurityFlags bits
const (
	apFlagsPrivacy        uint32 = 0x1
	apSecKeyMgmt8021X     uint32 = 0x200
	apSecKeyMgmtEAPSuiteB uint32 = 0x2000
)

func (n *NetworkManager) Devices() ([]*network.Device, error) {
	var paths []dbus.ObjectPath

	err := n.obj.Call(rootIface+".GetDevices", 0).Store(&paths)
	if err != nil {
		return nil, errors.Errorf("could not get devices: %v", err)
	}

	var devices []*network.Device

	for _, path := range paths {
		obj := n.object(path)

		device := &network.Device{Path: string(path)}

		if v, err := obj.GetProperty(deviceIface + ".Interface"); err == nil {
			device.Interface, _ = v.Value().(string)
		}

		v, err := obj.GetProperty(deviceIface + ".DeviceType")
		if err != nil {
			n.log.Warnf("Could not get type of device %v: %v", path, err)
			continue
		}

		t, _ := v.Value().(uint32)
		device.Type = deviceType(t)

		devices = append(devices, device)
	}

	return devices, nil
}

func deviceType(t uint32) network.DeviceType {
	switch t {
	case 0:
		return network.DeviceTypeUnknown
	case deviceTypeEthernet:
		return network.DeviceTypeEthernet
	case deviceTypeWifi:
		return network.DeviceTypeWifi
	default:
		return network.DeviceTypeOther
	}
}

func (n *NetworkManager) RequestScan(device *network.Device) error {
	call := n.object(dbus.ObjectPath(device.Path)).Call(wirelessIface+".RequestScan", 0, map[string]dbus.Variant{})
	if call.Err != nil {
		return errors.Errorf("could not request scan: %v", call.Err)
	}

	return nil
}

func (n *NetworkManager) AccessPoints(device *network.Device) ([]*network.AccessPoint, error) {
	var paths []dbus.ObjectPath

	err := n.object(dbus.ObjectPath(device.Path)).Call(wirelessIface+".GetAllAccessPoints", 0).Store(&paths)
	if err != nil {
		return nil, errors.Errorf("could not get access points: %v", err)
	}

	var aps []*network.AccessPoint

	for _, path := range paths {
		ap, err := n.accessPoint(path)
		if err != nil {
			// access points come and go while scanning
			n.log.Debugf("Skipping access point %v: %v", path, err)
			continue
		}

		aps = append(aps, ap)
	}

	return aps, nil
}

func (n *NetworkManager) accessPoint(path dbus.ObjectPath) (*network.AccessPoint, error) {
	var props map[string]dbus.Variant

	err := n.object(path).Call("org.freedesktop.DBus.Properties.GetAll", 0, apIface).Store(&props)
	if err != nil {
		return nil, errors.Errorf("could not get all properties: %v", err)
	}

	ap := &network.AccessPoint{}

	if val, ok := props["Ssid"]; ok {
		if ssid, ok := val.Value().([]byte); ok {
			ap.Ssid = string(ssid)
		} else {
			return nil, errors.Errorf("could not convert Ssid to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property Ssid was missing")
	}

	if val, ok := props["Strength"]; ok {
		if strength, ok := val.Value().(byte); ok {
			ap.Strength = uint32(strength)
		}
	}

	flags := uint32Prop(props, "Flags")
	wpaFlags := uint32Prop(props, "WpaFlags")
	rsnFlags := uint32Prop(props, "RsnFlags")

	ap.Security = securityClass(flags, wpaFlags, rsnFlags)

	return ap, nil
}

func uint32Prop(props map[string]dbus.Variant, name string) uint32 {
	if val, ok := props[name]; ok {
		if v, ok := val.Value().(uint32); ok {
			return v
		}
	}

	return 0
}

// securityClass derives what an access point requires from its beacon flags.
func securityClass(flags, wpaFlags, rsnFlags uint32) network.SecurityClass {
	all := wpaFlags | rsnFlags

	switch {
	case all&(apSecKeyMgmt8021X|apSecKeyMgmtEAPSuiteB) != 0:
		return network.SecurityEnterprise
	case all != 0:
		return network.SecurityProtectedAccess
	case flags&apFlagsPrivacy != 0:
		return network.SecuritySharedKey
	default:
		return network.SecurityNone
	}
}
