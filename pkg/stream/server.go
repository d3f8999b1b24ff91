// Package stream publishes rendered frames to websocket viewers and
// relays their camera controls back to the application.
package stream

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	// sendBuffer is the number of frames queued per viewer. Frames beyond
	// it are skipped for that viewer rather than stalling the others.
	sendBuffer = 2
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("stream: server closed")

// Control is a camera move sent by a viewer as a JSON text message:
//
//	{"move": [x, y, z], "yaw": radians}
//
// Move is in the camera's own basis.
type Control struct {
	Move geom.Vec3
	Yaw  float64
}

type controlMessage struct {
	Move [3]float64 `json:"move"`
	Yaw  float64    `json:"yaw"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Server is an http.Handler that upgrades requests to websockets and
// fans published frames out to every connected viewer.
type Server struct {
	enc       *encoder
	onControl func(Control)
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	seq     uint64
	scratch []byte
	closed  bool
}

// NewServer returns a Server that compresses frames with codec. onControl
// may be nil, in which case viewer messages are read and discarded.
func NewServer(codec Codec, onControl func(Control)) (*Server, error) {
	enc, err := newEncoder(codec)
	if err != nil {
		return nil, err
	}
	return &Server{
		enc:       enc,
		onControl: onControl,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Clients returns the number of connected viewers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish encodes f once and queues it for every viewer. It returns the
// sequence number assigned to the frame.
func (s *Server) Publish(f *render.Frame) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.seq++
	s.scratch = f.RGBA(s.scratch)
	msg := s.enc.message(Header{Seq: s.seq, Width: f.Width, Height: f.Height}, s.scratch)
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return s.seq, nil
}

// Close disconnects every viewer and releases the encoder.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	return s.enc.close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("stream: upgrade:", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), id: r.RemoteAddr}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	log.Printf("stream: viewer %s connected", c.id)

	go s.writeLoop(c)
	go s.readLoop(c)
}

// remove drops c from the viewer set. The writer sees the closed send
// channel and shuts the connection.
func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) readLoop(c *client) {
	defer s.remove(c)
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("stream: viewer %s: %v", c.id, err)
			} else {
				log.Printf("stream: viewer %s disconnected", c.id)
			}
			return
		}
		if kind != websocket.TextMessage || s.onControl == nil {
			continue
		}
		var cm controlMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			log.Printf("stream: viewer %s: bad control message: %v", c.id, err)
			continue
		}
		s.onControl(Control{Move: geom.V(cm.Move[0], cm.Move[1], cm.Move[2]), Yaw: cm.Yaw})
	}
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
