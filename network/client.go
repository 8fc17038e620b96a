package network

import (
	"context"
	"sync"
	"time"
)

// Client receives the connectivity of the network service whenever it
// changes. The first value is sent as soon as it is known.
type Client struct {
	Updates <-chan bool
	Id      uint32
	cancel  context.CancelFunc
	once    sync.Once
	done    chan struct{}
}

// Subscribe starts polling connectivity every StatusInterval for a new
// client until the client is cancelled.
func (m *Manager) Subscribe() *Client {
	updates := make(chan bool)
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		Updates: updates,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	m.nextClient.Lock()
	client.Id = m.nextClient.id
	m.nextClient.id++
	m.nextClient.Unlock()

	m.log.Debugf("Subscribed connectivity client %v", client.Id)

	go func() {
		defer close(client.done)
		defer close(updates)

		m.watchConnectivity(ctx, updates)
	}()

	return client
}

func (m *Manager) watchConnectivity(ctx context.Context, updates chan<- bool) {
	var (
		known bool
		last  bool
	)

	for {
		connected, err := m.IsConnected(ctx)
		if err != nil {
			m.log.Debugf("Could not poll connectivity: %v", err)
		} else if !known || connected != last {
			select {
			case updates <- connected:
			case <-ctx.Done():
				return
			}

			known = true
			last = connected
		}

		select {
		case <-time.After(m.statusInterval):
		case <-m.bridge.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// Cancel stops the client and closes its Updates channel.
func (c *Client) Cancel() {
	c.once.Do(func() {
		c.cancel()
		<-c.done
	})
}
