package network

import "time"

// Attempt is the outcome of one Connect call.
type Attempt struct {
	Ssid     string          `json:"ssid"`
	Security SecurityClass   `json:"security"`
	State    ConnectionState `json:"state"`
	Error    string          `json:"error,omitempty"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
}

// Succeeded reports whether the attempt ended without an error.
func (a *Attempt) Succeeded() bool {
	return a.Error == ""
}

// Journal keeps a history of connect attempts.
type Journal interface {
	Record(attempt *Attempt) error
}
