package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xploited/ubiquitousd/api"
	"github.com/xploited/ubiquitousd/attemptdb"
	"github.com/xploited/ubiquitousd/daemon"
	"github.com/xploited/ubiquitousd/network"
	"github.com/xploited/ubiquitousd/network/mock"
	"github.com/xploited/ubiquitousd/network/nm"
	"github.com/xploited/ubiquitousd/pairing"
	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// ubiquitousdMain is the true entry point for ubiquitousd. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func ubiquitousdMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig(os.Args[1:])
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling != nil && cfg.Profiling.Listen != "" {
		go func() {
			log.Infof("Starting profiling server on %v", cfg.Profiling.Listen)
			// Redirect the root path
			http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
			// All other handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling.Listen, nil)
			if err != nil {
				log.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	// attempts.db keeps the history of connect attempts
	attemptDB, err := attemptdb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open attempts.db: %v", err)
	}

	log.Infof("Opened attempts.db")

	defer func() {
		err := attemptDB.Close()
		if err != nil {
			log.Errorf("Could not close attempts.db: %v", err)
		} else {
			log.Info("Closed attempts.db.")
		}
	}()

	// The network service handle is only ever touched by the bridge worker
	var open func() (network.Handle, error)

	switch cfg.Net {
	case "nm":
		nmCfg := &nm.Config{
			Logger: log.New().WithField("system", "nm"),
		}

		if cfg.NM != nil {
			nmCfg.ActivationTimeout = cfg.NM.ActivationTimeout
			nmCfg.ActivationPoll = cfg.NM.ActivationPoll
		}

		open = nm.Open(nmCfg)

		log.Info("Using NetworkManager.")
	case "mock":
		mockCfg := &mock.Config{
			Networks: mock.DefaultNetworks(),
		}

		if cfg.Mock != nil {
			mockCfg.NoWifi = cfg.Mock.NoWifi
		}

		open = func() (network.Handle, error) {
			return mock.New(mockCfg), nil
		}

		log.Info("Using a mock network service.")
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	bridge := network.NewBridge(open, &network.BridgeConfig{
		Logger: log.New().WithField("system", "bridge"),
	})

	manager := network.NewManager(&network.Config{
		Bridge:         bridge,
		Logger:         log.New().WithField("system", "network"),
		Journal:        attemptDB,
		WaitInterval:   cfg.WaitInterval,
		StatusInterval: cfg.StatusInterval,
	})

	log.Infof("Created network manager.")

	a := api.New(&api.Config{
		Network:  manager,
		Attempts: attemptDB,
		Log:      log.New().WithField("system", "api"),
	})

	log.Infof("Created API")

	daemonCfg := &daemon.Config{
		Network:     manager,
		Api:         a,
		Listen:      cfg.Listen,
		StartupWait: cfg.StartupWait,
		Logger:      log.New().WithField("system", "daemon"),
	}

	if cfg.Pairing {
		// create subsystem responsible for pairing
		pairingController, err := pairing.NewController(&pairing.Config{
			Logger:          log.New().WithField("system", "pairing"),
			AdapterId:       cfg.Adapter,
			LocalName:       cfg.LocalName,
			Manager:         manager,
			RefreshInterval: cfg.ScanNotifyInterval,
		})
		if err != nil {
			return errors.Errorf("Could not create pairing controller: %v", err)
		}

		log.Infof("Created pairing controller.")

		daemonCfg.Pairing = pairingController
	}

	d := daemon.New(daemonCfg)

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping daemon...")
		d.Shutdown()
	}()

	// blocks until the daemon is shut down
	err = d.Run()
	if err != nil {
		return errors.Errorf("Failed running daemon: %v", err)
	}

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := ubiquitousdMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			log.WithError(err).Println("Failed running ubiquitousd.")
		}
		os.Exit(1)
	}
}
