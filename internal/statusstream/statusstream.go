// Package statusstream broadcasts mining-driver lifecycle events to
// WebSocket subscribers. Purely observational: nothing here feeds back
// into mining, and a slow or stalled subscriber can never block the
// driver loop.
package statusstream

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NexTokenTech/TREX-PoW/internal/driver"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientSendBuffer bounds how many unsent events a subscriber can queue
// before frames are dropped for it; this is what keeps a slow client from
// ever pushing back onto the broadcaster.
const clientSendBuffer = 32

// Server broadcasts DriverEvent frames over WebSocket.
type Server struct {
	bind   string
	srv    *http.Server
	wg     sync.WaitGroup
	quit   chan struct{}
	quitMu sync.Once

	clients  sync.Map // clientID -> *wsClient
	clientID uint64
}

type wsClient struct {
	id   uint64
	conn *websocket.Conn
	out  chan driver.DriverEvent
	quit chan struct{}
}

// New builds a status-stream server bound to addr. Call Start to serve.
func New(bind string) *Server {
	return &Server{
		bind: bind,
		quit: make(chan struct{}),
	}
}

// Start begins serving WebSocket connections on /stream.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleConnection)

	s.srv = &http.Server{Addr: s.bind, Handler: mux}
	util.Infof("status stream listening on %s", s.bind)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("status stream server error: %v", err)
		}
	}()
	return nil
}

// Stop closes all subscriber connections and shuts down the server.
func (s *Server) Stop() error {
	s.quitMu.Do(func() { close(s.quit) })
	var err error
	if s.srv != nil {
		err = s.srv.Close()
	}
	s.clients.Range(func(_, value interface{}) bool {
		value.(*wsClient).conn.Close()
		return true
	})
	s.wg.Wait()
	return err
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Warnf("status stream upgrade error: %v", err)
		return
	}

	client := &wsClient{
		id:   atomic.AddUint64(&s.clientID, 1),
		conn: conn,
		out:  make(chan driver.DriverEvent, clientSendBuffer),
		quit: make(chan struct{}),
	}
	s.clients.Store(client.id, client)
	util.Debugf("status stream client %d connected", client.id)

	s.wg.Add(1)
	go s.writeLoop(client)
	go s.readLoop(client) // drains/detects close frames; this stream is send-only otherwise
}

// readLoop's only job is to notice the client went away: a send-only
// stream still needs to read control frames to detect a closed socket.
func (s *Server) readLoop(client *wsClient) {
	defer func() {
		close(client.quit)
		s.clients.Delete(client.id)
		client.conn.Close()
		util.Debugf("status stream client %d disconnected", client.id)
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(client *wsClient) {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case <-client.quit:
			return
		case ev := <-client.out:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteJSON(ev); err != nil {
				util.Debugf("status stream write error for client %d: %v", client.id, err)
				return
			}
		}
	}
}

// Emit implements driver.EventSink. It never blocks: a subscriber whose
// send buffer is full simply misses the frame.
func (s *Server) Emit(ev driver.DriverEvent) {
	s.clients.Range(func(_, value interface{}) bool {
		client := value.(*wsClient)
		select {
		case client.out <- ev:
		default:
			util.Debugf("status stream client %d buffer full, dropping event", client.id)
		}
		return true
	})
}

// ClientCount returns the number of connected subscribers.
func (s *Server) ClientCount() int {
	count := 0
	s.clients.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}
