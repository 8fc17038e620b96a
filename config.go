package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/xploited/ubiquitousd/network"
)

const (
	defaultConfigFilename = "ubiquitousd.conf"
	defaultDataDir        = "/var/lib/ubiquitousd"
	defaultNet            = "nm"
	defaultAdapter        = "hci0"
	defaultListen         = ":9000"
	defaultLocalName      = "Ubiquitous"
)

type profilingConfig struct {
	Listen string `long:"listen" description:"Address the profiling server listens on, like localhost:6060"`
}

type nmConfig struct {
	ActivationTimeout time.Duration `long:"activationtimeout" description:"How long connecting waits for NetworkManager to activate a connection" default:"30s"`
	ActivationPoll    time.Duration `long:"activationpoll" description:"How often the activation state is read" default:"500ms"`
}

type mockConfig struct {
	NoWifi bool `long:"nowifi" description:"Simulate a device without a wireless adapter"`
}

type config struct {
	ConfigFile  string `long:"configfile" description:"Path to an INI configuration file"`
	ShowVersion bool   `short:"v" long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start in debug mode"`
	DataDir     string `long:"datadir" description:"The directory to store the attempt journal in"`

	Net string `long:"net" description:"The network service to manage" choice:"nm" choice:"mock"`

	Pairing   bool   `long:"pairing" description:"Offer Wi-Fi configuration over Bluetooth LE"`
	Adapter   string `long:"adapter" description:"The Bluetooth adapter to advertise on"`
	LocalName string `long:"localname" description:"The name advertised over Bluetooth LE"`

	Listen string `long:"listen" description:"Address the api listens on"`

	WaitInterval       time.Duration `long:"wait-interval" description:"How often waiting for a connection polls connectivity"`
	StatusInterval     time.Duration `long:"status-interval" description:"How often connectivity is polled for subscribers"`
	ScanNotifyInterval time.Duration `long:"scan-notify-interval" description:"How often the Bluetooth scan list is refreshed"`
	StartupWait        time.Duration `long:"startup-wait" description:"How long to wait for an existing connection on startup"`

	Profiling *profilingConfig `group:"Profiling" namespace:"profiling"`
	NM        *nmConfig        `group:"NetworkManager" namespace:"nm"`
	Mock      *mockConfig      `group:"Mock" namespace:"mock"`
}

func defaultConfig() config {
	return config{
		DataDir:            defaultDataDir,
		Net:                defaultNet,
		Adapter:            defaultAdapter,
		LocalName:          defaultLocalName,
		Listen:             defaultListen,
		WaitInterval:       network.DefaultWaitInterval,
		StatusInterval:     network.DefaultStatusInterval,
		ScanNotifyInterval: 10 * time.Second,
		StartupWait:        30 * time.Second,
	}
}

// loadConfig reads the command line first to find the config file, then
// the file, then the command line again so that flags take precedence.
func loadConfig(args []string) (*config, error) {
	preCfg := defaultConfig()

	_, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if preCfg.ShowVersion {
		return &preCfg, nil
	}

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)

	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
	}

	err = flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok || preCfg.ConfigFile != "" {
			return nil, err
		}
	}

	_, err = parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
