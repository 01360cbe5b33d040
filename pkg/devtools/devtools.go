// Package devtools exposes a live inspector for selectctx cells over HTTP:
// a JSON listing of registered cells, a Prometheus metrics endpoint, and a
// WebSocket stream of protocol events for debugging tearing and render
// storms in development.
//
//	insp := devtools.NewInspector()
//	ctx := selectctx.CreateContext(initial,
//	    selectctx.WithName("cart"),
//	    selectctx.WithObserver(insp.Observer()),
//	)
//	insp.Register(ctx.Cell())
//
//	http.ListenAndServe(":6061", insp.Handler())
package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

// CellStatus is the JSON shape of one registered cell.
type CellStatus struct {
	Name        string            `json:"name"`
	Version     selectctx.Version `json:"version"`
	Subscribers int               `json:"subscribers"`
}

// ProtocolEvent is the JSON shape of one streamed protocol event.
type ProtocolEvent struct {
	Kind      string            `json:"kind"`
	Cell      string            `json:"cell"`
	Phase     string            `json:"phase,omitempty"`
	Version   selectctx.Version `json:"version,omitempty"`
	Listeners int               `json:"listeners,omitempty"`
	Time      time.Time         `json:"time"`
}

// Config configures an Inspector.
type Config struct {
	// Logger used for connection lifecycle messages.
	// Default: slog.Default() with component=devtools.
	Logger *slog.Logger

	// WriteTimeout bounds each WebSocket write (default: 5s).
	WriteTimeout time.Duration

	// MetricsHandler serves GET /metrics.
	// Default: promhttp.Handler().
	MetricsHandler http.Handler
}

// Option configures an Inspector.
type Option func(*Config)

// WithLogger sets the inspector's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWriteTimeout sets the per-write WebSocket deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithMetricsHandler sets the handler mounted at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *Config) {
		c.MetricsHandler = h
	}
}

// Inspector serves cell state and protocol events in development.
type Inspector struct {
	config   Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	cells   map[string]selectctx.CellInfo
	clients map[*websocket.Conn]bool
}

// NewInspector creates an Inspector with no registered cells.
func NewInspector(opts ...Option) *Inspector {
	config := Config{
		WriteTimeout:   5 * time.Second,
		MetricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "devtools")
	}

	return &Inspector{
		config: config,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		cells:   make(map[string]selectctx.CellInfo),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Register adds a cell to the /cells listing. Re-registering a name
// replaces the previous entry.
func (i *Inspector) Register(c selectctx.CellInfo) {
	i.mu.Lock()
	i.cells[c.Name()] = c
	i.mu.Unlock()
}

// Unregister removes a cell from the listing.
func (i *Inspector) Unregister(name string) {
	i.mu.Lock()
	delete(i.cells, name)
	i.mu.Unlock()
}

// Observer returns a selectctx.Observer that streams protocol events to
// every connected WebSocket client. Attach it with selectctx.WithObserver
// (combine with others via selectctx.MultiObserver).
func (i *Inspector) Observer() selectctx.Observer {
	return &streamObserver{inspector: i}
}

// Handler returns the inspector's HTTP surface:
//
//	GET /cells    JSON listing of registered cells
//	GET /events   WebSocket stream of protocol events
//	GET /metrics  Prometheus metrics
func (i *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/cells", i.handleCells)
	r.Get("/events", i.handleEvents)
	r.Handle("/metrics", i.config.MetricsHandler)

	return r
}

// ClientCount returns the number of connected event stream clients.
func (i *Inspector) ClientCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.clients)
}

// Close disconnects all event stream clients.
func (i *Inspector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()

	for client := range i.clients {
		client.Close()
		delete(i.clients, client)
	}
}

func (i *Inspector) handleCells(w http.ResponseWriter, r *http.Request) {
	i.mu.RLock()
	statuses := make([]CellStatus, 0, len(i.cells))
	for _, c := range i.cells {
		statuses = append(statuses, CellStatus{
			Name:        c.Name(),
			Version:     c.Version(),
			Subscribers: c.Subscribers(),
		})
	}
	i.mu.RUnlock()

	sort.Slice(statuses, func(a, b int) bool {
		return statuses[a].Name < statuses[b].Name
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		i.logger.Error("cells encode error", "error", err)
	}
}

func (i *Inspector) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	i.mu.Lock()
	i.clients[conn] = true
	i.mu.Unlock()
	i.logger.Debug("event stream client connected", "remote", conn.RemoteAddr())

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	i.mu.Lock()
	delete(i.clients, conn)
	i.mu.Unlock()
	conn.Close()
	i.logger.Debug("event stream client disconnected", "remote", conn.RemoteAddr())
}

// broadcast sends an event to every connected client, dropping clients
// whose writes fail or time out.
func (i *Inspector) broadcast(ev ProtocolEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	i.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(i.clients))
	for client := range i.clients {
		clients = append(clients, client)
	}
	i.mu.RUnlock()

	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(i.config.WriteTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			i.mu.Lock()
			delete(i.clients, client)
			i.mu.Unlock()
			client.Close()
		}
	}
}

// streamObserver adapts the inspector's broadcast to selectctx.Observer.
type streamObserver struct {
	inspector *Inspector
}

func (s *streamObserver) UpdateStarted(c selectctx.CellInfo, v selectctx.Version) {
	s.inspector.broadcast(ProtocolEvent{Kind: "update", Cell: c.Name(), Version: v, Time: time.Now()})
}

func (s *streamObserver) PhaseBroadcast(c selectctx.CellInfo, p selectctx.Phase, v selectctx.Version, n int) {
	s.inspector.broadcast(ProtocolEvent{
		Kind: "broadcast", Cell: c.Name(), Phase: p.String(),
		Version: v, Listeners: n, Time: time.Now(),
	})
}

func (s *streamObserver) ValueCommitted(c selectctx.CellInfo, v selectctx.Version) {
	s.inspector.broadcast(ProtocolEvent{Kind: "commit", Cell: c.Name(), Version: v, Time: time.Now()})
}

func (s *streamObserver) SelectorRecovered(c selectctx.CellInfo, v selectctx.Version) {
	s.inspector.broadcast(ProtocolEvent{Kind: "selector_recovered", Cell: c.Name(), Version: v, Time: time.Now()})
}

func (s *streamObserver) ConsumerRendered(c selectctx.CellInfo) {
	s.inspector.broadcast(ProtocolEvent{Kind: "consumer_rendered", Cell: c.Name(), Time: time.Now()})
}

func (s *streamObserver) ConsumerBailedOut(c selectctx.CellInfo) {
	s.inspector.broadcast(ProtocolEvent{Kind: "consumer_bailout", Cell: c.Name(), Time: time.Now()})
}
