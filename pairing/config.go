package pairing

import "time"

const (
	defaultRefreshInterval = 10 * time.Second
	defaultRequestTimeout  = 60 * time.Second
)

type Config struct {
	Logger Logger

	// AdapterId is the Bluetooth adapter to advertise on, like hci0.
	AdapterId string

	// LocalName is advertised to nearby devices.
	LocalName string

	Manager WifiManager

	// RefreshInterval is how often the scan list served to readers is
	// renewed in the background.
	RefreshInterval time.Duration

	// RequestTimeout bounds a single characteristic read or write.
	RequestTimeout time.Duration
}
