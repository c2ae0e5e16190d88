package serve

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"tracker/video"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second
)

// StatusUpdater pushes session status to websocket clients. Slow clients
// only ever see the latest status.
type StatusUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	notify   chan []byte
	last     []byte
}

func NewStatusUpdater() *StatusUpdater {
	m := &StatusUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan []byte]bool),
		addc:   make(chan chan []byte),
		delc:   make(chan chan []byte),
		notify: make(chan []byte, 16),
	}
	go m.loop()
	return m
}

func (m *StatusUpdater) loop() {
	for {
		select {
		case c := <-m.addc:
			m.cs[c] = true
			if m.last != nil {
				offer(c, m.last)
			}
		case c := <-m.delc:
			delete(m.cs, c)
		case msg := <-m.notify:
			m.last = msg
			for c := range m.cs {
				offer(c, msg)
			}
		}
	}
}

// offer replaces any undelivered message in c with msg.
func offer(c chan []byte, msg []byte) {
	select {
	case <-c:
	default:
	}
	select {
	case c <- msg:
	default:
	}
}

// SessionUpdated implements video.Listener. It never blocks.
func (m *StatusUpdater) SessionUpdated(st video.Status) {
	js, err := json.Marshal(&StatusResponse{Status: st, Active: true})
	if err != nil {
		log.Errorf("Failed to encode status: %v", err)
		return
	}
	select {
	case m.notify <- js:
	default:
		log.Debugf("Status update dropped")
	}
}

func (m *StatusUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for status stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *StatusUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to status socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from status socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	notifyc := make(chan []byte, 1)
	m.addc <- notifyc
	defer func() { m.delc <- notifyc }()

	// Even though we don't care about incoming messages, we need to read from
	// the socket in order to process control messages.
	closed := make(chan bool)
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-notifyc:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
