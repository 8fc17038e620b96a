package pairing

import (
	"context"
	"time"
)

// scanNotifier rescans and publishes the scan list every interval, but only
// while a central is connected to the adapter.
type scanNotifier struct {
	manager  WifiManager
	cache    *scanListCache
	interval time.Duration
	timeout  time.Duration
	present  func() bool
	publish  func(payload []byte)
	log      Logger
}

func (n *scanNotifier) run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		if n.present() {
			payload, err := n.cache.refresh(ctx, n.manager, n.timeout, n.log)
			if err == nil {
				n.publish(payload)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// notifyConnectionStatus publishes the connection status every time it
// changes, until updates is closed or ctx is done.
func notifyConnectionStatus(ctx context.Context, updates <-chan bool, publish func(payload []byte), log Logger) {
	for {
		select {
		case connected, ok := <-updates:
			if !ok {
				return
			}

			payload, err := statusPayload(connected)
			if err != nil {
				log.Warnf("Could not notify connection status: %v", err)
				continue
			}

			publish(payload)
		case <-ctx.Done():
			return
		}
	}
}
