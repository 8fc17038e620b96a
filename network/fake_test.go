package network

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeHandle is an in-memory network service that records every call.
type fakeHandle struct {
	mtx sync.Mutex

	calls []string

	devices      []*Device
	devicesErr   error
	scanErr      error
	aps          []*AccessPoint
	profiles     []*Profile
	connectState ConnectionState
	connectErr   error
	devicesHook  func()

	// connectErrSaves leaves a profile behind when Connect fails without
	// returning it.
	connectErrSaves bool
	credentials     Credentials
	nextProfile     int

	connectivity      []Connectivity
	connectivityCalls int
}

var _ Handle = (*fakeHandle)(nil)

func newFakeHandle(aps ...*AccessPoint) *fakeHandle {
	return &fakeHandle{
		devices: []*Device{
			{Path: "/devices/1", Interface: "eth0", Type: DeviceTypeEthernet},
			{Path: "/devices/2", Interface: "wlan0", Type: DeviceTypeWifi},
		},
		aps:          aps,
		connectState: StateActivated,
		connectivity: []Connectivity{ConnectivityFull},
	}
}

func (f *fakeHandle) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeHandle) Calls() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]string{}, f.calls...)
}

func (f *fakeHandle) ResetCalls() {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.calls = nil
}

func (f *fakeHandle) Profiles() ([]*Profile, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("Profiles")

	return append([]*Profile{}, f.profiles...), nil
}

func (f *fakeHandle) SavedProfiles() []*Profile {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]*Profile{}, f.profiles...)
}

func (f *fakeHandle) Devices() ([]*Device, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("Devices")

	if f.devicesHook != nil {
		f.devicesHook()
	}

	return f.devices, f.devicesErr
}

func (f *fakeHandle) RequestScan(device *Device) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("RequestScan:" + device.Interface)

	return f.scanErr
}

func (f *fakeHandle) AccessPoints(device *Device) ([]*AccessPoint, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("AccessPoints:" + device.Interface)

	var aps []*AccessPoint
	for _, ap := range f.aps {
		c := *ap
		aps = append(aps, &c)
	}

	return aps, nil
}

func (f *fakeHandle) DeleteProfile(profile *Profile) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("DeleteProfile:" + profile.Ssid)

	for i, p := range f.profiles {
		if p.Path == profile.Path {
			f.profiles = append(f.profiles[:i], f.profiles[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("no profile %v", profile.Path)
}

func (f *fakeHandle) Connect(device *Device, ap *AccessPoint, credentials Credentials) (*Profile, ConnectionState, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("Connect:" + ap.Ssid + ":" + credentials.Security().String())
	f.credentials = credentials

	if f.connectErr != nil && !f.connectErrSaves {
		return nil, StateUnknown, f.connectErr
	}

	f.nextProfile++
	profile := &Profile{
		Path: fmt.Sprintf("/settings/%v", f.nextProfile),
		Id:   ap.Ssid,
		Ssid: ap.Ssid,
	}
	f.profiles = append(f.profiles, profile)

	if f.connectErr != nil {
		return nil, StateUnknown, f.connectErr
	}

	return profile, f.connectState, nil
}

func (f *fakeHandle) Connectivity() (Connectivity, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.record("Connectivity")

	i := f.connectivityCalls
	if i >= len(f.connectivity) {
		i = len(f.connectivity) - 1
	}
	f.connectivityCalls++

	return f.connectivity[i], nil
}

func (f *fakeHandle) ConnectivityCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return f.connectivityCalls
}

func newTestBridge(h Handle) *Bridge {
	return NewBridge(func() (Handle, error) {
		return h, nil
	}, nil)
}

func newTestManager(t *testing.T, h Handle) *Manager {
	t.Helper()

	return NewManager(&Config{
		Bridge:         newTestBridge(h),
		WaitInterval:   time.Millisecond,
		StatusInterval: time.Millisecond,
	})
}
