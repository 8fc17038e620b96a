package connectivity

import (
	"context"
	"sync"

	"github.com/xploited/ubiquitousd/network"
)

type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case Online:
		return "ONLINE"
	default:
		return "INVALID STATE"
	}
}

type Reporter interface {
	CurrentState() State
	WaitForStateChange(context.Context, State) bool
}

// check Monitor compliance to its interface during compile time
var _ Reporter = (*Monitor)(nil)

// Monitor follows the connectivity updates of a network client. It starts
// out offline until the first update arrives.
type Monitor struct {
	mtx     sync.Mutex
	state   State
	changed chan struct{}
	done    chan struct{}
}

func NewMonitor(client *network.Client) *Monitor {
	m := &Monitor{
		state:   Offline,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(m.done)

		for connected := range client.Updates {
			if connected {
				m.set(Online)
			} else {
				m.set(Offline)
			}
		}
	}()

	return m
}

func (m *Monitor) set(state State) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.state == state {
		return
	}

	m.state = state
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Monitor) CurrentState() State {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.state
}

// WaitForStateChange blocks until the state differs from state. It returns
// false if ctx is done or the client stopped sending updates first.
func (m *Monitor) WaitForStateChange(ctx context.Context, state State) bool {
	for {
		m.mtx.Lock()
		current, changed := m.state, m.changed
		m.mtx.Unlock()

		if current != state {
			return true
		}

		select {
		case <-changed:
		case <-m.done:
			return m.CurrentState() != state
		case <-ctx.Done():
			return false
		}
	}
}

// Done is closed once the client stopped sending updates.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}
