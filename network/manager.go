package network

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
)

const (
	DefaultWaitInterval   = 200 * time.Millisecond
	DefaultStatusInterval = 3 * time.Second
)

// check Manager compliance to its interface during compile time
var _ Network = (*Manager)(nil)

type Config struct {
	Bridge *Bridge
	Logger Logger

	// Journal records every connect attempt when set.
	Journal Journal

	// WaitInterval is how often WaitForConnection polls. There is no upper
	// bound on the number of polls other than the caller's context.
	WaitInterval time.Duration

	// StatusInterval is how often subscribed clients are refreshed.
	StatusInterval time.Duration
}

type nextClient struct {
	sync.Mutex
	id uint32
}

// Manager scans, connects and reports connectivity by submitting tasks to
// the bridge that owns the network service handle.
type Manager struct {
	log            Logger
	bridge         *Bridge
	journal        Journal
	waitInterval   time.Duration
	statusInterval time.Duration
	scanMtx        sync.Mutex
	lastScan       []*AccessPoint
	nextClient     nextClient
}

func NewManager(config *Config) *Manager {
	m := &Manager{
		bridge:         config.Bridge,
		journal:        config.Journal,
		waitInterval:   config.WaitInterval,
		statusInterval: config.StatusInterval,
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	if m.waitInterval <= 0 {
		m.waitInterval = DefaultWaitInterval
	}

	if m.statusInterval <= 0 {
		m.statusInterval = DefaultStatusInterval
	}

	return m
}

// ListAccessPoints scans with the wifi device and returns every access point
// found, including hidden ones.
func (m *Manager) ListAccessPoints(ctx context.Context) ([]*AccessPoint, error) {
	aps, err := Submit(ctx, m.bridge, func(h Handle) ([]*AccessPoint, error) {
		device, err := findWifiDevice(h)
		if err != nil {
			return nil, err
		}

		if err := h.RequestScan(device); err != nil {
			return nil, wrapKind(ErrScanFailed, err)
		}

		aps, err := h.AccessPoints(device)
		if err != nil {
			return nil, wrapKind(ErrScanFailed, err)
		}

		return aps, nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Debugf("Scan found %v access points", len(aps))

	m.scanMtx.Lock()
	m.lastScan = make([]*AccessPoint, len(aps))
	for i, ap := range aps {
		c := *ap
		m.lastScan[i] = &c
	}
	m.scanMtx.Unlock()

	return aps, nil
}

// IsConnected reports whether the network service has full connectivity.
func (m *Manager) IsConnected(ctx context.Context) (bool, error) {
	return Submit(ctx, m.bridge, func(h Handle) (bool, error) {
		connectivity, err := h.Connectivity()
		if err != nil {
			return false, errors.Errorf("could not get connectivity: %v", err)
		}

		return connectivity == ConnectivityFull, nil
	})
}

// Connect joins the access point with the given ssid. The security of the
// access point is taken from the most recent scan. An activating connection
// counts as success, use WaitForConnection to confirm connectivity.
func (m *Manager) Connect(ctx context.Context, ssid string, fields CredentialFields) error {
	attempt := &Attempt{
		Ssid:    ssid,
		Started: time.Now(),
	}

	err := m.connect(ctx, attempt, fields)

	attempt.Finished = time.Now()
	if err != nil {
		attempt.Error = err.Error()
		m.log.Errorf("Could not connect to %v: %v", ssid, err)
	} else {
		m.log.Infof("Connected to %v (%v)", ssid, attempt.State)
	}

	if m.journal != nil {
		if err := m.journal.Record(attempt); err != nil {
			m.log.Warnf("Could not record connect attempt: %v", err)
		}
	}

	return err
}

func (m *Manager) connect(ctx context.Context, attempt *Attempt, fields CredentialFields) error {
	ap, err := m.lookupAccessPoint(ctx, attempt.Ssid)
	if err != nil {
		return err
	}

	attempt.Security = ap.Security

	credentials, err := NewCredentials(ap.Security, fields)
	if err != nil {
		return err
	}

	m.log.Infof("Connecting to %v with %v security and passphrase %v",
		ap.Ssid, ap.Security, mask(fields.Passphrase))

	c := newConnectAttempt(m.log, *ap, credentials)

	state, err := Submit(ctx, m.bridge, c.run)
	if err != nil && !IsBridgeError(err) {
		// delivered, so the worker is done with the attempt
		state = c.state
	}

	attempt.State = state

	return err
}

// lookupAccessPoint finds the ssid in the most recent scan, scanning once
// more if it isn't there.
func (m *Manager) lookupAccessPoint(ctx context.Context, ssid string) (*AccessPoint, error) {
	if ssid == "" {
		return nil, wrapKind(ErrAccessPointNotFound, errors.New("empty ssid"))
	}

	if ap := m.scannedAccessPoint(ssid); ap != nil {
		return ap, nil
	}

	if _, err := m.ListAccessPoints(ctx); err != nil {
		return nil, err
	}

	if ap := m.scannedAccessPoint(ssid); ap != nil {
		return ap, nil
	}

	return nil, wrapKind(ErrAccessPointNotFound, errors.Errorf("no access point with ssid %q", ssid))
}

func (m *Manager) scannedAccessPoint(ssid string) *AccessPoint {
	m.scanMtx.Lock()
	defer m.scanMtx.Unlock()

	var found *AccessPoint

	// the strongest signal wins when an ssid is served by several access points
	for _, ap := range m.lastScan {
		if ap.Ssid == ssid && (found == nil || ap.Strength > found.Strength) {
			found = ap
		}
	}

	if found == nil {
		return nil
	}

	c := *found
	return &c
}

// WaitForConnection polls IsConnected every WaitInterval and returns once
// full connectivity is observed. Failed polls count as not connected. It
// only gives up when ctx is done or the bridge is closed.
func (m *Manager) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(m.waitInterval)
	defer ticker.Stop()

	for {
		connected, err := m.IsConnected(ctx)
		if err == nil && connected {
			return nil
		}

		if err != nil {
			select {
			case <-m.bridge.Done():
				return err
			default:
			}

			m.log.Debugf("Connectivity poll failed: %v", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
