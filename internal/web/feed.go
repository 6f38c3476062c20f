package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// feedQueue is the per-client backlog. Lines beyond it are dropped.
	feedQueue    = 64
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 1024,
}

// Feed streams serial protocol lines to websocket clients.
// It implements serial.LineWriter so it can sit in a serial.Tee next to the
// real port. WriteLine never blocks: a client that falls behind loses lines.
type Feed struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	closed  bool
	dropped int
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{clients: make(map[chan string]struct{})}
}

// WriteLine queues line for every connected client.
func (f *Feed) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- line:
		default:
			if f.dropped == 0 {
				log.Printf("web: live client too slow, dropping lines")
			}
			f.dropped++
		}
	}
	return nil
}

// Close disconnects all clients. Later connections are refused.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for ch := range f.clients {
		close(ch)
		delete(f.clients, ch)
	}
	return nil
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Dropped returns the number of lines dropped for slow clients.
func (f *Feed) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *Feed) subscribe() (chan string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	ch := make(chan string, feedQueue)
	f.clients[ch] = struct{}{}
	return ch, true
}

func (f *Feed) unsubscribe(ch chan string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[ch]; ok {
		delete(f.clients, ch)
		close(ch)
	}
}

// ServeHTTP upgrades the request and streams lines as text frames until
// the client goes away or the feed is closed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := f.subscribe()
	if !ok {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		f.unsubscribe(ch)
		log.Printf("web: live upgrade: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("web: live client connected from %s", r.RemoteAddr)

	// Drain client frames so close and ping control frames are handled.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line, open := <-ch:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
					time.Now().Add(writeTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				log.Printf("web: live write: %v", err)
				f.unsubscribe(ch)
				return
			}
		case <-gone:
			f.unsubscribe(ch)
			log.Printf("web: live client %s disconnected", r.RemoteAddr)
			return
		}
	}
}
