package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/xploited/ubiquitousd/connectivity"
	"github.com/xploited/ubiquitousd/network"
)

const defaultStartupWait = 30 * time.Second

type Api interface {
	Serve(l net.Listener) error
}

type Pairing interface {
	Start() error
	Stop() error
}

type connectivityMonitor interface {
	connectivity.Reporter
	Done() <-chan struct{}
}

type Config struct {
	Network *network.Manager
	Api     Api

	// Pairing is optional.
	Pairing Pairing

	// Listen is the address of the api.
	Listen string

	// StartupWait bounds how long Run waits for a connection already
	// configured on the device before it reports being offline.
	StartupWait time.Duration

	Logger Logger
}

// Daemon runs the api and the pairing service on top of the network
// manager and follows connectivity until it is shut down.
type Daemon struct {
	network     *network.Manager
	api         Api
	pairing     Pairing
	listen      string
	startupWait time.Duration
	log         Logger
	done        chan struct{}
	once        sync.Once
	monitorMtx  sync.Mutex
	monitor     *connectivity.Monitor
}

func New(config *Config) *Daemon {
	d := &Daemon{
		network:     config.Network,
		api:         config.Api,
		pairing:     config.Pairing,
		listen:      config.Listen,
		startupWait: config.StartupWait,
		done:        make(chan struct{}),
	}

	if config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	if d.startupWait <= 0 {
		d.startupWait = defaultStartupWait
	}

	return d
}

// Run blocks until Shutdown is called.
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-d.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if d.api != nil {
		lis, err := net.Listen("tcp", d.listen)
		if err != nil {
			return errors.Errorf("api unable to listen on %v: %v", d.listen, err)
		}

		defer func() {
			if err := lis.Close(); err != nil {
				d.log.Warnf("Could not close api listener: %v", err)
			}
		}()

		d.log.Infof("Serving api on %v", lis.Addr())

		go func() {
			err := d.api.Serve(lis)
			if err != nil {
				select {
				case <-d.done:
				default:
					d.log.Errorf("Could not serve api: %v", err)
				}
			}
		}()
	}

	if d.pairing != nil {
		if err := d.pairing.Start(); err != nil {
			return errors.Errorf("could not start pairing: %v", err)
		}

		d.log.Infof("Started pairing")

		defer func() {
			if err := d.pairing.Stop(); err != nil {
				d.log.Errorf("Could not properly stop pairing: %v", err)
			} else {
				d.log.Infof("Stopped pairing")
			}
		}()
	}

	d.waitForStartupConnection(ctx)

	client := d.network.Subscribe()
	defer client.Cancel()

	monitor := connectivity.NewMonitor(client)

	d.monitorMtx.Lock()
	d.monitor = monitor
	d.monitorMtx.Unlock()

	return d.followConnectivity(ctx, monitor)
}

func (d *Daemon) waitForStartupConnection(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, d.startupWait)
	defer cancel()

	err := d.network.WaitForConnection(waitCtx)
	switch {
	case err == nil:
		d.log.Infof("Connected to the internet")
	case network.IsBridgeError(err):
		d.log.Errorf("Network service is unavailable: %v", err)
	default:
		d.log.Infof("Not connected yet, waiting for pairing")
	}
}

func (d *Daemon) followConnectivity(ctx context.Context, monitor connectivityMonitor) error {
	state := monitor.CurrentState()

	for {
		if !monitor.WaitForStateChange(ctx, state) {
			select {
			case <-d.done:
				return nil
			case <-monitor.Done():
				return errors.New("network service stopped reporting connectivity")
			default:
				return nil
			}
		}

		state = monitor.CurrentState()
		d.log.Infof("Device is now %v", state)
	}
}

// Connectivity reports the last known state once Run is following it.
func (d *Daemon) Connectivity() connectivity.State {
	d.monitorMtx.Lock()
	defer d.monitorMtx.Unlock()

	if d.monitor == nil {
		return connectivity.Offline
	}

	return d.monitor.CurrentState()
}

func (d *Daemon) Shutdown() {
	d.once.Do(func() {
		close(d.done)
	})
}
