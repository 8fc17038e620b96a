package network

import "context"

// SecurityClass is the authentication scheme an access point advertises.
type SecurityClass int

const (
	SecurityNone SecurityClass = iota
	SecuritySharedKey
	SecurityProtectedAccess
	SecurityEnterprise
)

// Security bits exchanged with peripheral clients.
const (
	securityBitsNone       uint32 = 0
	securityBitsWep        uint32 = 1
	securityBitsWpa2       uint32 = 4
	securityBitsEnterprise uint32 = 8
)

func (s SecurityClass) String() string {
	switch s {
	case SecurityNone:
		return "NONE"
	case SecuritySharedKey:
		return "SHARED_KEY"
	case SecurityProtectedAccess:
		return "PROTECTED_ACCESS"
	case SecurityEnterprise:
		return "ENTERPRISE"
	default:
		return "INVALID SECURITY"
	}
}

// Bits returns the wire value of the security class.
func (s SecurityClass) Bits() uint32 {
	switch s {
	case SecuritySharedKey:
		return securityBitsWep
	case SecurityProtectedAccess:
		return securityBitsWpa2
	case SecurityEnterprise:
		return securityBitsEnterprise
	default:
		return securityBitsNone
	}
}

// AccessPoint is a wireless network discovered by a scan. An access point
// with an empty Ssid is hidden and can't be selected by a user.
type AccessPoint struct {
	Ssid     string
	Security SecurityClass
	Strength uint32
}

// ConnectionState is the activation state the network service reports after
// a connect attempt.
type ConnectionState uint32

const (
	StateUnknown ConnectionState = iota
	StateActivating
	StateActivated
	StateDeactivating
	StateDeactivated
)

func (s ConnectionState) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateActivating:
		return "ACTIVATING"
	case StateActivated:
		return "ACTIVATED"
	case StateDeactivating:
		return "DEACTIVATING"
	case StateDeactivated:
		return "DEACTIVATED"
	default:
		return "INVALID STATE"
	}
}

// Failed reports whether the state is terminal without being active.
func (s ConnectionState) Failed() bool {
	switch s {
	case StateUnknown, StateDeactivating, StateDeactivated:
		return true
	default:
		return false
	}
}

// Connectivity is the overall connectivity the network service reports.
type Connectivity uint32

const (
	ConnectivityUnknown Connectivity = iota
	ConnectivityNone
	ConnectivityPortal
	ConnectivityLimited
	ConnectivityFull
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityUnknown:
		return "UNKNOWN"
	case ConnectivityNone:
		return "NONE"
	case ConnectivityPortal:
		return "PORTAL"
	case ConnectivityLimited:
		return "LIMITED"
	case ConnectivityFull:
		return "FULL"
	default:
		return "INVALID CONNECTIVITY"
	}
}

type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeEthernet
	DeviceTypeWifi
	DeviceTypeOther
)

// Device is a network interface managed by the network service.
type Device struct {
	Path      string
	Interface string
	Type      DeviceType
}

// Profile is a saved connection configuration kept by the network service.
type Profile struct {
	Path string
	Id   string
	Ssid string
}

// Handle is the blocking, single-threaded network service. A Handle is only
// ever used from the goroutine of the Bridge that opened it.
type Handle interface {
	Devices() ([]*Device, error)
	RequestScan(device *Device) error
	AccessPoints(device *Device) ([]*AccessPoint, error)
	Profiles() ([]*Profile, error)
	DeleteProfile(profile *Profile) error
	Connect(device *Device, ap *AccessPoint, credentials Credentials) (*Profile, ConnectionState, error)
	Connectivity() (Connectivity, error)
}

// Network is what collaborators need from the connection manager.
type Network interface {
	ListAccessPoints(ctx context.Context) ([]*AccessPoint, error)
	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context, ssid string, fields CredentialFields) error
	WaitForConnection(ctx context.Context) error
	Subscribe() *Client
}
