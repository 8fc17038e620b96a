package pairing

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/linux/btmgmt"
	"github.com/muka/go-bluetooth/service"
	"github.com/xploited/ubiquitousd/network"
)

const (
	objectName = "xyz.xploited"
	objectPath = "/ubiquitous/pairing/service"

	defaultLocalName = "Ubiquitous"

	wifiServiceUuid        = "ddbc279f-61eb-484a-bbc2-f65f2d4325be"
	wifiScanListUuid       = "a6bb77a3-e0d5-4841-b424-55a7ddc9f1cb"
	connectionStatusUuid   = "3fa8daec-bb2a-465c-b5e5-5735a5c7acbd"
	wifiConnectRequestUuid = "beb1ed79-7b42-4bd1-968c-7d6d4c10eaa6"
)

type Controller struct {
	log             Logger
	adapterId       string
	manager         WifiManager
	app             *service.Application
	refreshInterval time.Duration
	requestTimeout  time.Duration
	scanList        *scanListCache
	scanListChar    *gattCharacteristic
	statusChar      *gattCharacteristic
	client          *network.Client
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

func NewController(config *Config) (*Controller, error) {
	if config.Manager == nil {
		return nil, errors.New("pairing needs a wifi manager")
	}

	controller := &Controller{
		adapterId:       config.AdapterId,
		manager:         config.Manager,
		refreshInterval: config.RefreshInterval,
		requestTimeout:  config.RequestTimeout,
		scanList:        &scanListCache{},
	}

	if config.Logger != nil {
		controller.log = config.Logger
	} else {
		controller.log = noopLogger{}
	}

	if controller.refreshInterval <= 0 {
		controller.refreshInterval = defaultRefreshInterval
	}

	if controller.requestTimeout <= 0 {
		controller.requestTimeout = defaultRequestTimeout
	}

	localName := config.LocalName
	if localName == "" {
		localName = defaultLocalName
	}

	app := GattApp(objectName, objectPath, localName)
	svc := app.Service(Primary, wifiServiceUuid, Advertised)

	svc.DeviceNameCharacteristic(localName).
		UserDescriptionDescriptor("Device Name")
	controller.scanListChar = svc.NotifyingCharacteristic(wifiScanListUuid, controller.readWifiScanList).
		UserDescriptionDescriptor("Wi-Fi Scan List")
	controller.statusChar = svc.NotifyingCharacteristic(connectionStatusUuid, controller.readConnectionStatus).
		UserDescriptionDescriptor("Connection Status")
	svc.Characteristic(wifiConnectRequestUuid, nil, controller.writeConnectRequest).
		UserDescriptionDescriptor("Wi-Fi Connect Request")

	var err error

	controller.app, err = app.Run()
	if err != nil {
		return nil, errors.Errorf("could not start app: %v", err)
	}

	return controller, nil
}

func (c *Controller) Start() error {
	mgmt := btmgmt.NewBtMgmt(c.adapterId)
	err := mgmt.Reset()
	if err != nil {
		return errors.Errorf("reset %s: %v", c.adapterId, err)
	}

	// Sleep to give the device some time after the reset
	time.Sleep(time.Millisecond * 500)

	gattManager, err := api.GetGattManager(c.adapterId)
	if err != nil {
		return errors.Errorf("get gatt manager failed: %v", err)
	}

	err = gattManager.RegisterApplication(c.app.Path(), map[string]interface{}{})
	if err != nil {
		return errors.Errorf("register failed: %v", err)
	}

	err = c.app.StartAdvertising(c.adapterId)
	if err != nil {
		return errors.Errorf("failed to advertise: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.client = c.manager.Subscribe()

	notifier := &scanNotifier{
		manager:  c.manager,
		cache:    c.scanList,
		interval: c.refreshInterval,
		timeout:  c.requestTimeout,
		present:  c.centralConnected,
		publish:  c.scanListChar.Publish,
		log:      c.log,
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		notifier.run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		notifyConnectionStatus(ctx, c.client.Updates, c.statusChar.Publish, c.log)
	}()

	return nil
}

func (c *Controller) Stop() error {
	if c.cancel != nil {
		c.cancel()
		c.client.Cancel()
		c.wg.Wait()
	}

	err := c.app.StopAdvertising()
	if err != nil {
		return errors.Errorf("could not stop advertising: %v", err)
	}

	gattManager, err := api.GetGattManager(c.adapterId)
	if err != nil {
		return errors.Errorf("get gatt manager failed: %v", err)
	}

	err = gattManager.UnregisterApplication(c.app.Path())
	if err != nil {
		return errors.Errorf("unregister failed: %v", err)
	}

	return nil
}

// centralConnected reports whether any device is connected to the adapter.
func (c *Controller) centralConnected() bool {
	devices, err := api.GetDevices()
	if err != nil {
		c.log.Warnf("Could not list devices: %v", err)
		return false
	}

	for i := range devices {
		if devices[i].IsConnected() {
			return true
		}
	}

	return false
}

func (c *Controller) readWifiScanList() ([]byte, error) {
	c.log.Infof("Reading wifi scan list...")

	if payload, ok := c.scanList.get(c.refreshInterval); ok {
		return payload, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	return c.scanList.refresh(ctx, c.manager, c.requestTimeout, c.log)
}

func (c *Controller) readConnectionStatus() ([]byte, error) {
	c.log.Infof("Reading connection status...")

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	return encodeConnectionStatus(ctx, c.manager)
}

func (c *Controller) writeConnectRequest(value []byte) error {
	c.log.Infof("Writing wifi connect request")

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	err := connect(ctx, c.manager, value)
	if err != nil {
		c.log.Warnf("Connect request failed: %v", err)
		return err
	}

	return nil
}
