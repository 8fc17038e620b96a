package pairing

import (
	"context"
	"sync"
	"time"
)

// scanListCache holds the last encoded scan list so that readers don't wait
// for a scan.
type scanListCache struct {
	mtx       sync.Mutex
	payload   []byte
	refreshed time.Time
}

// get returns the cached scan list unless it is older than maxAge.
func (s *scanListCache) get(maxAge time.Duration) ([]byte, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.payload == nil || time.Since(s.refreshed) > maxAge {
		return nil, false
	}

	return s.payload, true
}

func (s *scanListCache) refresh(ctx context.Context, wm WifiManager, timeout time.Duration, log Logger) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := encodeScanList(ctx, wm)
	if err != nil {
		log.Warnf("Could not refresh scan list: %v", err)
		return nil, err
	}

	s.mtx.Lock()
	s.payload = payload
	s.refreshed = time.Now()
	s.mtx.Unlock()

	return payload, nil
}
