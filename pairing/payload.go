package pairing

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xploited/ubiquitousd/network"
)

// WifiManager is the part of the network manager the pairing service
// exposes over Bluetooth.
type WifiManager interface {
	ListAccessPoints(ctx context.Context) ([]*network.AccessPoint, error)
	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context, ssid string, fields network.CredentialFields) error
	Subscribe() *network.Client
}

type accessPointInfo struct {
	Ssid     string `msgpack:"ssid"`
	Security uint32 `msgpack:"security"`
	Strength uint32 `msgpack:"strength"`
}

type connectionStatus struct {
	IsConnected bool `msgpack:"is_connected"`
}

type connectRequest struct {
	Ssid     string  `msgpack:"ssid"`
	Password *string `msgpack:"password,omitempty"`
	Identity *string `msgpack:"identity,omitempty"`
}

// encodeScanList lists the access points in range. Hidden networks can't
// be picked by name and are left out.
func encodeScanList(ctx context.Context, wm WifiManager) ([]byte, error) {
	aps, err := wm.ListAccessPoints(ctx)
	if err != nil {
		return nil, errors.Errorf("could not list access points: %v", err)
	}

	infos := []*accessPointInfo{}
	for _, ap := range aps {
		if ap.Ssid == "" {
			continue
		}

		infos = append(infos, &accessPointInfo{
			Ssid:     ap.Ssid,
			Security: ap.Security.Bits(),
			Strength: ap.Strength,
		})
	}

	payload, err := msgpack.Marshal(infos)
	if err != nil {
		return nil, errors.Errorf("could not serialize scan list: %v", err)
	}

	return payload, nil
}

func encodeConnectionStatus(ctx context.Context, wm WifiManager) ([]byte, error) {
	connected, err := wm.IsConnected(ctx)
	if err != nil {
		return nil, errors.Errorf("could not get connection status: %v", err)
	}

	return statusPayload(connected)
}

func statusPayload(connected bool) ([]byte, error) {
	payload, err := msgpack.Marshal(&connectionStatus{IsConnected: connected})
	if err != nil {
		return nil, errors.Errorf("could not serialize connection status: %v", err)
	}

	return payload, nil
}

func decodeConnectRequest(value []byte) (*connectRequest, error) {
	req := &connectRequest{}

	if err := msgpack.Unmarshal(value, req); err != nil {
		return nil, errors.Errorf("could not deserialize connect request: %v", err)
	}

	return req, nil
}

func (r *connectRequest) fields() network.CredentialFields {
	fields := network.CredentialFields{}

	if r.Password != nil {
		fields.Passphrase = *r.Password
	}

	if r.Identity != nil {
		fields.Identity = *r.Identity
	}

	return fields
}

func connect(ctx context.Context, wm WifiManager, value []byte) error {
	req, err := decodeConnectRequest(value)
	if err != nil {
		return err
	}

	err = wm.Connect(ctx, req.Ssid, req.fields())
	if err != nil {
		return errors.Errorf("could not connect to %v: %v", req.Ssid, err)
	}

	return nil
}
