// Package dashboard streams served predictions to WebSocket subscribers.
//
// A Feed is handed to the model server as its PredictionPublisher and mounted
// as the /ws/predictions handler. New subscribers first receive the most
// recent predictions, then every prediction as it is served.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"titanic-survival/internal/ml"
)

const (
	defaultBufferSize = 100
	defaultBacklog    = 20
	writeTimeout      = 5 * time.Second
)

// MetricsInterface defines metrics methods needed by the feed
type MetricsInterface interface {
	FeedClientsSet(int)
	FeedDroppedInc()
}

// Feed broadcasts prediction events to connected WebSocket clients.
type Feed struct {
	upgrader  websocket.Upgrader
	metrics   MetricsInterface
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan ml.PredictionEvent
	stop      chan struct{}
	done      chan struct{}

	recent    []ml.PredictionEvent
	backlog   int
	recentMu  sync.Mutex
	isRunning bool
	mu        sync.Mutex
	stopOnce  sync.Once
}

// NewFeed creates a feed; metrics may be nil.
func NewFeed(metrics MetricsInterface) *Feed {
	return &Feed{
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		metrics:   metrics,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan ml.PredictionEvent, defaultBufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		backlog:   defaultBacklog,
	}
}

// Start launches the broadcaster goroutine.
func (f *Feed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isRunning {
		return fmt.Errorf("prediction feed is already running")
	}
	f.isRunning = true
	go f.broadcaster()

	log.Info().Msg("Prediction feed started")
	return nil
}

// Stop shuts the broadcaster down and disconnects every client.
func (f *Feed) Stop() {
	f.mu.Lock()
	running := f.isRunning
	f.mu.Unlock()

	f.stopOnce.Do(func() { close(f.stop) })
	if running {
		<-f.done
	}

	f.clientsMu.Lock()
	for conn := range f.clients {
		conn.Close()
		delete(f.clients, conn)
	}
	f.clientsMu.Unlock()
	f.reportClients(0)

	log.Info().Msg("Prediction feed stopped")
}

// Publish queues an event for broadcast. It never blocks; events are dropped
// when the queue is full or the feed is stopped.
func (f *Feed) Publish(event ml.PredictionEvent) {
	select {
	case <-f.stop:
		return
	default:
	}

	select {
	case f.broadcast <- event:
	default:
		log.Warn().Str("prediction_id", event.ID).Msg("Prediction feed queue full, dropping event")
		if f.metrics != nil {
			f.metrics.FeedDroppedInc()
		}
	}
}

// Clients returns the number of connected subscribers.
func (f *Feed) Clients() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// ServeHTTP upgrades the request and keeps the subscriber registered until
// its connection fails.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	// Backlog goes out before registration; after that only the broadcaster writes.
	for _, event := range f.snapshot() {
		if err := writeEvent(conn, event); err != nil {
			return
		}
	}

	f.clientsMu.Lock()
	f.clients[conn] = true
	count := len(f.clients)
	f.clientsMu.Unlock()
	f.reportClients(count)
	log.Debug().Str("remote", r.RemoteAddr).Int("clients", count).Msg("Feed subscriber connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.removeClient(conn)
}

func (f *Feed) broadcaster() {
	defer close(f.done)
	for {
		select {
		case event := <-f.broadcast:
			f.remember(event)
			f.broadcastToClients(event)
		case <-f.stop:
			return
		}
	}
}

func (f *Feed) broadcastToClients(event ml.PredictionEvent) {
	f.clientsMu.RLock()
	var failed []*websocket.Conn
	for conn := range f.clients {
		if err := writeEvent(conn, event); err != nil {
			log.Debug().Err(err).Msg("Failed to send prediction to subscriber")
			failed = append(failed, conn)
		}
	}
	f.clientsMu.RUnlock()

	for _, conn := range failed {
		conn.Close()
		f.removeClient(conn)
	}
}

func (f *Feed) removeClient(conn *websocket.Conn) {
	f.clientsMu.Lock()
	if !f.clients[conn] {
		f.clientsMu.Unlock()
		return
	}
	delete(f.clients, conn)
	count := len(f.clients)
	f.clientsMu.Unlock()
	f.reportClients(count)
}

func (f *Feed) remember(event ml.PredictionEvent) {
	f.recentMu.Lock()
	defer f.recentMu.Unlock()
	f.recent = append(f.recent, event)
	if len(f.recent) > f.backlog {
		f.recent = f.recent[len(f.recent)-f.backlog:]
	}
}

func (f *Feed) snapshot() []ml.PredictionEvent {
	f.recentMu.Lock()
	defer f.recentMu.Unlock()
	return append([]ml.PredictionEvent(nil), f.recent...)
}

func (f *Feed) reportClients(n int) {
	if f.metrics != nil {
		f.metrics.FeedClientsSet(n)
	}
}

func writeEvent(conn *websocket.Conn, event ml.PredictionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
