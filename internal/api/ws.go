package api

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/transactor"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = wsPongWait * 9 / 10
	wsReadLimit    = 512
)

// Message types pushed over /api/ws.
const (
	MessageTx    = "tx"
	MessageEvent = "event"
)

// Message is one frame pushed to WebSocket clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// serveWS pushes transaction status changes and new counter events until the
// client goes away. The current transaction state is sent first.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	s.conns.Add(conn)
	defer s.conns.Remove(conn)
	log.Debug("WebSocket client connected", "remote", conn.RemoteAddr(), "clients", s.conns.Cardinality())

	states := make(chan transactor.State, 16)
	txSub := s.tx.SubscribeStatus(states)
	defer txSub.Unsubscribe()

	events := make(chan *counter.CounterChanged, 16)
	if s.backend.Feed != nil {
		evSub := s.backend.Feed.SubscribeEvents(events)
		defer evSub.Unsubscribe()
	}

	// Clients only send control frames; reading detects the close.
	gone := make(chan struct{})
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("WebSocket connection closed unexpectedly", "err", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	write := func(msg Message) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("WebSocket write failed", "err", err)
			return false
		}
		return true
	}
	if !write(Message{Type: MessageTx, Data: s.tx.State()}) {
		return
	}
	for {
		select {
		case st := <-states:
			if !write(Message{Type: MessageTx, Data: st}) {
				return
			}
		case ev := <-events:
			if !write(Message{Type: MessageEvent, Data: ev}) {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-txSub.Err():
			return
		case <-gone:
			log.Debug("WebSocket client disconnected", "remote", conn.RemoteAddr())
			return
		}
	}
}

// closeConns drops every open WebSocket connection. Hijacked connections are
// not closed by http.Server.Shutdown.
func (s *Server) closeConns() {
	s.conns.Each(func(c interface{}) bool {
		c.(*websocket.Conn).Close()
		return false
	})
}
