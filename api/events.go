package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type connectivityEvent struct {
	Connected bool      `json:"connected"`
	Time      time.Time `json:"time"`
}

func (a *Api) handleGetConnectivityEvents() http.HandlerFunc {
	upgrader := &websocket.Upgrader{}

	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader already responded
			a.log.Warnf("Could not upgrade connectivity events: %v", err)
			return
		}
		defer c.Close()

		client := a.network.Subscribe()
		defer client.Cancel()

		closed := make(chan struct{})

		// read pump
		go func() {
			defer close(closed)

			c.SetReadLimit(512)
			c.SetReadDeadline(time.Now().Add(pongWait))
			c.SetPongHandler(func(string) error {
				c.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})

			for {
				_, _, err := c.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						a.log.Errorf("Unexpected websocket closure: %v", err)
					}
					return
				}
			}
		}()

		// write pump
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case connected, ok := <-client.Updates:
				c.SetWriteDeadline(time.Now().Add(writeWait))

				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}

				err := c.WriteJSON(&connectivityEvent{
					Connected: connected,
					Time:      time.Now(),
				})
				if err != nil {
					return
				}
			case <-ticker.C:
				c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}
}
