package diag

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// MonitorConfig configures the telemetry server.
type MonitorConfig struct {
	// Addr is the listen address. Use "127.0.0.1:0" to pick a free
	// port.
	Addr string

	// Interval between pushed snapshots. Default 500ms.
	Interval time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (c *MonitorConfig) defaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8390"
	}
	if c.Interval == 0 {
		c.Interval = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Monitor serves collector snapshots over HTTP: GET /state for a
// single JSON snapshot and /ws for a WebSocket stream.
type Monitor struct {
	cfg      MonitorConfig
	col      *Collector
	server   *http.Server
	ln       net.Listener
	upgrader websocket.Upgrader
}

// NewMonitor creates a monitor serving col.
func NewMonitor(col *Collector, cfg MonitorConfig) *Monitor {
	cfg.defaults()
	m := &Monitor{
		cfg: cfg,
		col: col,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/state", m.handleState)
	mux.HandleFunc("/ws", m.handleWS)
	m.server = &http.Server{Handler: mux}
	return m
}

// Start binds the listen address and serves in the background.
func (m *Monitor) Start() error {
	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return err
	}
	m.ln = ln
	go func() {
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.cfg.Logger.Error("monitor server failed", "error", err)
		}
	}()
	m.cfg.Logger.Info("monitor listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address after Start.
func (m *Monitor) Addr() string {
	if m.ln == nil {
		return m.cfg.Addr
	}
	return m.ln.Addr().String()
}

// Close shuts the server down.
func (m *Monitor) Close(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

func (m *Monitor) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.col.Snapshot()); err != nil {
		m.cfg.Logger.Warn("encode state failed", "error", err)
	}
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	// Drain control frames so pings and close are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := ws.WriteJSON(m.col.Snapshot()); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
