package network

import (
	"github.com/go-errors/errors"
	"github.com/looplab/fsm"
)

const stateIdle = "idle"
const stateDeviceLookup = "deviceLookup"
const stateCredentialBuild = "credentialBuild"
const stateConnecting = "connecting"
const stateConnected = "connected"
const stateFailed = "failed"

const evLookupDevice = "evLookupDevice"
const evBuildCredentials = "evBuildCredentials"
const evConnect = "evConnect"
const evActivated = "evActivated"
const evFail = "evFail"

// connectAttempt drives a single connect through its states. It is created
// by the submitting goroutine and only run on the worker.
type connectAttempt struct {
	log         Logger
	ap          AccessPoint
	credentials Credentials
	states      *fsm.FSM
	state       ConnectionState
	profile     *Profile
}

func newConnectAttempt(log Logger, ap AccessPoint, credentials Credentials) *connectAttempt {
	a := &connectAttempt{
		log:         log,
		ap:          ap,
		credentials: credentials,
	}

	a.states = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: evLookupDevice, Src: []string{stateIdle}, Dst: stateDeviceLookup},
			{Name: evBuildCredentials, Src: []string{stateDeviceLookup}, Dst: stateCredentialBuild},
			{Name: evConnect, Src: []string{stateCredentialBuild}, Dst: stateConnecting},
			{Name: evActivated, Src: []string{stateConnecting}, Dst: stateConnected},
			{Name: evFail, Src: []string{stateIdle, stateDeviceLookup, stateCredentialBuild, stateConnecting}, Dst: stateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				a.log.Debugf("Connect to %v moved from %v to %v", a.ap.Ssid, e.Src, e.Dst)
			},
			"enter_" + stateFailed: a.enterFailed,
		},
	)

	return a
}

func handleArg(e *fsm.Event) Handle {
	return e.Args[0].(Handle)
}

// enterFailed removes the profile the attempt created. Without one, every
// profile for the ssid goes.
func (a *connectAttempt) enterFailed(e *fsm.Event) {
	h := handleArg(e)

	if a.profile == nil {
		deleteProfilesBySsid(h, a.ap.Ssid, a.log)
		return
	}

	if err := h.DeleteProfile(a.profile); err != nil {
		a.log.Warnf("Could not delete profile %v: %v", a.profile.Path, err)
	} else {
		a.log.Infof("Deleted failed profile %v for %v", a.profile.Path, a.ap.Ssid)
	}
}

func (a *connectAttempt) fail(h Handle, err error) (ConnectionState, error) {
	if ferr := a.states.Event(evFail, h); ferr != nil {
		a.log.Warnf("Could not enter failed state: %v", ferr)
	}

	return a.state, err
}

func (a *connectAttempt) transition(h Handle, event string) error {
	err := a.states.Event(event, h)
	if err != nil {
		return errors.Errorf("could not transition %v from %v: %v", event, a.states.Current(), err)
	}

	return nil
}

// run deletes the stale profiles for the ssid, locates the wifi device and
// connects. A state that is not activating or activated fails the attempt.
func (a *connectAttempt) run(h Handle) (ConnectionState, error) {
	deleteProfilesBySsid(h, a.ap.Ssid, a.log)

	if err := a.transition(h, evLookupDevice); err != nil {
		return a.fail(h, err)
	}

	device, err := findWifiDevice(h)
	if err != nil {
		return a.fail(h, err)
	}

	if err := a.transition(h, evBuildCredentials); err != nil {
		return a.fail(h, err)
	}

	if a.credentials.Security() != a.ap.Security {
		return a.fail(h, errors.Errorf("credentials for %v don't match access point security %v",
			a.credentials.Security(), a.ap.Security))
	}

	if err := a.transition(h, evConnect); err != nil {
		return a.fail(h, err)
	}

	profile, state, err := h.Connect(device, &a.ap, a.credentials)
	a.profile = profile
	if err != nil {
		return a.fail(h, wrapKind(ErrConnectFailed, err))
	}

	a.state = state

	if state.Failed() {
		return a.fail(h, wrapKind(ErrConnectFailed, errors.Errorf("connection ended up %v", state)))
	}

	if err := a.transition(h, evActivated); err != nil {
		return a.fail(h, err)
	}

	return state, nil
}

// deleteProfilesBySsid deletes every saved profile for the ssid. Failures
// are logged and otherwise ignored.
func deleteProfilesBySsid(h Handle, ssid string, log Logger) {
	profiles, err := h.Profiles()
	if err != nil {
		log.Debugf("Could not list saved profiles: %v", err)
		return
	}

	for _, profile := range profiles {
		if profile.Ssid != ssid {
			continue
		}

		if err := h.DeleteProfile(profile); err != nil {
			log.Warnf("Could not delete profile %v: %v", profile.Id, err)
		} else {
			log.Infof("Deleted saved profile %v for %v", profile.Id, ssid)
		}
	}
}

func findWifiDevice(h Handle) (*Device, error) {
	devices, err := h.Devices()
	if err != nil {
		return nil, wrapKind(ErrResourceUnavailable, err)
	}

	for _, device := range devices {
		if device.Type == DeviceTypeWifi {
			return device, nil
		}
	}

	return nil, wrapKind(ErrResourceUnavailable, nil)
}
