package observe

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fleetsim/fleetsim/sim"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// StreamProgress upgrades the request to a websocket and writes the progress
// of one simulation as JSON text frames until a terminal report, the end of
// the broker stream, or the client going away. When current is non-nil its
// report is sent first so late subscribers see where the run stands.
func StreamProgress(w http.ResponseWriter, r *http.Request, b Broker, simulationID string, current func() (sim.Progress, bool)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Debugf("progress stream %s: %v", simulationID, err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch := b.Subscribe(simulationID)
	defer b.Unsubscribe(simulationID, ch)

	// read loop so control frames (close, ping) are processed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(p sim.Progress) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(p); err != nil {
			return false
		}
		return !p.Kind.Terminal()
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}

	if current != nil {
		if p, ok := current(); ok && !write(p) {
			closeNormal()
			return
		}
	}
	for {
		select {
		case p, ok := <-ch:
			if !ok || !write(p) {
				closeNormal()
				return
			}
		case <-gone:
			return
		}
	}
}
