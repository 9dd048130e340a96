// Package telemetry is an opt-in introspection surface (cmd/gbcore serves
// it on a loopback address unless --telemetry-addr says otherwise): a
// websocket endpoint that pushes one JSON Snapshot of the running
// System's public state per completed frame. It never reads private
// component state and never influences emulation — attaching and
// detaching clients is invisible to System.Step.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/reneklacan/gbcore/internal/system"
)

// Snapshot is what gets pushed to each attached client.
type Snapshot struct {
	A               uint8  `json:"a"`
	F               uint8  `json:"f"`
	B               uint8  `json:"b"`
	C               uint8  `json:"c"`
	D               uint8  `json:"d"`
	E               uint8  `json:"e"`
	H               uint8  `json:"h"`
	L               uint8  `json:"l"`
	SP              uint16 `json:"sp"`
	PC              uint16 `json:"pc"`
	IME             bool   `json:"ime"`
	Halted          bool   `json:"halted"`
	PPUMode         uint8  `json:"ppu_mode"`
	LY              uint8  `json:"ly"`
	ChannelsEnabled uint8  `json:"channels_enabled"`
	Cycles          uint64 `json:"cycles"`
	AudioBuffered   int    `json:"audio_buffered"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming HTTP connections to websockets and pushes a
// Snapshot to every attached client each time PushFrame is called (the
// host's frame loop calls PushFrame once per System.FrameReady()).
type Server struct {
	sys *system.System

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewServer returns a Server reading from sys. It has no side effects on
// sys until a client connects and PushFrame starts being called.
func NewServer(sys *system.System) *Server {
	return &Server{sys: sys, clients: make(map[*websocket.Conn]chan []byte)}
}

// Snapshot returns the current state snapshot without needing a client
// attached — useful for a one-shot debugging read.
func (srv *Server) Snapshot() Snapshot {
	r := srv.sys.Registers()
	return Snapshot{
		A: r.A, F: r.F, B: r.B, C: r.C, D: r.D, E: r.E, H: r.H, L: r.L,
		SP: r.SP, PC: r.PC, IME: r.IME, Halted: r.Halted,
		PPUMode:         uint8(srv.sys.PPUMode()),
		LY:              srv.sys.LY(),
		ChannelsEnabled: srv.sys.ChannelsEnabled(),
		Cycles:          srv.sys.Cycles(),
		AudioBuffered:   srv.sys.AudioBuffered(),
	}
}

// ServeHTTP upgrades the connection and registers it to receive one
// Snapshot per PushFrame call until it disconnects.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	send := make(chan []byte, 4)
	srv.mu.Lock()
	srv.clients[conn] = send
	srv.mu.Unlock()

	defer func() {
		srv.mu.Lock()
		delete(srv.clients, conn)
		srv.mu.Unlock()
		conn.Close()
	}()

	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// PushFrame encodes the current Snapshot and enqueues it to every attached
// client. Slow clients whose buffer is full are skipped for this frame
// rather than blocking the caller.
func (srv *Server) PushFrame() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.clients) == 0 {
		return
	}
	data, err := json.Marshal(srv.Snapshot())
	if err != nil {
		return
	}
	for _, send := range srv.clients {
		select {
		case send <- data:
		default:
		}
	}
}
