// Builders for GATT applications, services, characteristics and
// descriptors on top of BlueZ

package pairing

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus"
	"github.com/muka/go-bluetooth/bluez"
	"github.com/muka/go-bluetooth/bluez/profile"
	"github.com/muka/go-bluetooth/service"
)

type PrimaryType bool

const Primary = PrimaryType(true)

type AdvertisedType bool

const Advertised = AdvertisedType(true)

type HandleRead = func() ([]byte, error)
type HandleWrite = func(value []byte) error

// handlerKey identifies a characteristic within the application.
type handlerKey struct {
	service        string
	characteristic string
}

type gattApp struct {
	app           *service.Application
	err           error
	readHandlers  map[handlerKey]HandleRead
	writeHandlers map[handlerKey]HandleWrite
}

type gattService struct {
	*gattApp
	uuid    string
	service *service.GattService1
}

type gattCharacteristic struct {
	*gattService
	characteristic *service.GattCharacteristic1
}

func GattApp(objectName string, objectPath string, localName string) *gattApp {
	a := &gattApp{
		readHandlers:  make(map[handlerKey]HandleRead),
		writeHandlers: make(map[handlerKey]HandleWrite),
	}

	var err error

	a.app, err = service.NewApplication(&service.ApplicationConfig{
		ObjectName: objectName,
		ObjectPath: dbus.ObjectPath(objectPath),
		LocalName:  localName,
		ReadFunc:   a.handleRead,
		WriteFunc:  a.handleWrite,
	})
	if err != nil {
		a.err = errors.Errorf("could not create app: %v", err)
	}

	return a
}

func (a *gattApp) handleRead(app *service.Application, serviceUuid string, characteristicUuid string) ([]byte, error) {
	if read, ok := a.readHandlers[handlerKey{serviceUuid, characteristicUuid}]; ok {
		return read()
	}

	return nil, service.NewCallbackError(service.CallbackNotRegistered, "")
}

func (a *gattApp) handleWrite(app *service.Application, serviceUuid string, characteristicUuid string, value []byte) error {
	if write, ok := a.writeHandlers[handlerKey{serviceUuid, characteristicUuid}]; ok {
		return write(value)
	}

	return service.NewCallbackError(service.CallbackNotRegistered, "")
}

func (a *gattApp) Run() (*service.Application, error) {
	if a.err != nil {
		return nil, a.err
	}

	err := a.app.Run()
	if err != nil {
		return nil, errors.Errorf("could not run app: %v", err)
	}

	return a.app, nil
}

func (a *gattApp) Service(primaryType PrimaryType, uuid string, advertised AdvertisedType) *gattService {
	s := &gattService{gattApp: a, uuid: uuid}

	if a.err != nil {
		return s
	}

	svc, err := a.app.CreateService(&profile.GattService1Properties{
		Primary: bool(primaryType),
		UUID:    uuid,
	}, bool(advertised))
	if err != nil {
		a.err = errors.Errorf("failed to create service %v: %v", uuid, err)
		return s
	}

	err = a.app.AddService(svc)
	if err != nil {
		a.err = errors.Errorf("failed to add service %v: %v", uuid, err)
		return s
	}

	s.service = svc

	return s
}

func (s *gattService) DeviceNameCharacteristic(value string) *gattCharacteristic {
	return s.characteristic("2A00", []byte(value), nil, nil, false)
}

func (s *gattService) Characteristic(uuid string, read HandleRead, write HandleWrite) *gattCharacteristic {
	return s.characteristic(uuid, nil, read, write, false)
}

// NotifyingCharacteristic is a readable characteristic whose value can also
// be pushed to subscribed centrals with Publish.
func (s *gattService) NotifyingCharacteristic(uuid string, read HandleRead) *gattCharacteristic {
	return s.characteristic(uuid, nil, read, nil, true)
}

func (s *gattService) characteristic(uuid string, value []byte, read HandleRead, write HandleWrite, notify bool) *gattCharacteristic {
	c := &gattCharacteristic{gattService: s}

	if s.err != nil {
		return c
	}

	var flags []string
	key := handlerKey{s.uuid, uuid}

	if read != nil || value != nil {
		flags = append(flags, bluez.FlagCharacteristicRead)
	}

	if read != nil {
		s.readHandlers[key] = read
	}

	if write != nil {
		flags = append(flags, bluez.FlagCharacteristicWrite)
		s.writeHandlers[key] = write
	}

	if notify {
		flags = append(flags, bluez.FlagCharacteristicNotify)
	}

	characteristic, err := s.service.CreateCharacteristic(&profile.GattCharacteristic1Properties{
		UUID:  uuid,
		Value: value,
		Flags: flags,
	})
	if err != nil {
		s.err = errors.Errorf("failed to create characteristic %v: %v", uuid, err)
		return c
	}

	err = s.service.AddCharacteristic(characteristic)
	if err != nil {
		s.err = errors.Errorf("failed to add characteristic %v: %v", uuid, err)
		return c
	}

	c.characteristic = characteristic

	return c
}

func (c *gattCharacteristic) UserDescriptionDescriptor(value string) *gattCharacteristic {
	return c.descriptor("2901", []byte(value))
}

func (c *gattCharacteristic) descriptor(uuid string, value []byte) *gattCharacteristic {
	if c.err != nil {
		return c
	}

	descriptor, err := c.characteristic.CreateDescriptor(&profile.GattDescriptor1Properties{
		UUID:  uuid,
		Value: value,
		Flags: []string{
			bluez.FlagDescriptorRead,
		},
	})
	if err != nil {
		c.err = errors.Errorf("failed to create descriptor %v: %v", uuid, err)
		return c
	}

	err = c.characteristic.AddDescriptor(descriptor)
	if err != nil {
		c.err = errors.Errorf("failed to add descriptor %v: %v", uuid, err)
		return c
	}

	return c
}

// Publish updates the characteristic value, which BlueZ forwards as a
// notification to subscribed centrals.
func (c *gattCharacteristic) Publish(value []byte) {
	if c.characteristic == nil {
		return
	}

	c.characteristic.UpdateValue(value)
}
