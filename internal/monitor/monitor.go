// Package monitor exposes a live view of the bridge over WebSocket: every
// exchange event is broadcast as a JSON frame to all connected viewers, and
// a small HTTP surface serves recent history. Viewers are read-only.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"balatro-bridge/bridge"
	"balatro-bridge/internal/history"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling only, nothing sensitive crosses this socket
	},
}

// viewer is one WebSocket client connection.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub manages viewer connections and fans exchange events out to them.
type Hub struct {
	mu         sync.RWMutex
	viewers    map[string]*viewer
	nextID     uint64
	guard      *TokenGuard
	hist       history.Service
	startedAt  time.Time
	eventCount uint64
}

func NewHub(guard *TokenGuard, hist history.Service) *Hub {
	if hist == nil {
		hist = noHistory{}
	}
	return &Hub{
		viewers:   make(map[string]*viewer),
		guard:     guard,
		hist:      hist,
		startedAt: time.Now(),
	}
}

// eventFrame is the wire form of one broadcast event.
type eventFrame struct {
	Kind        string `json:"kind"`
	At          string `json:"at"`
	Phase       string `json:"phase"`
	Fingerprint string `json:"fingerprint"`
	Outcome     string `json:"outcome"`
	ActionType  string `json:"action_type,omitempty"`
	Error       string `json:"error,omitempty"`
	LatencyMs   int64  `json:"latency_ms"`
	Request     string `json:"request,omitempty"`
	Response    string `json:"response,omitempty"`
}

// Publish implements the loop's event sink: serialize once, fan out to all
// viewers, drop frames for any viewer whose buffer is full.
func (h *Hub) Publish(ev bridge.Event) {
	frame := eventFrame{
		Kind:        "exchange",
		At:          ev.At.UTC().Format(time.RFC3339Nano),
		Phase:       string(ev.Phase),
		Fingerprint: ev.Fingerprint,
		Outcome:     string(ev.Outcome),
		ActionType:  string(ev.ActionType),
		Error:       ev.Err,
		LatencyMs:   ev.Latency.Milliseconds(),
		Request:     ev.Request,
		Response:    ev.Response,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[Monitor] marshal event failed: %v", err)
		return
	}

	h.mu.Lock()
	h.eventCount++
	h.mu.Unlock()

	h.broadcast(data)
}

func (h *Hub) broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, v := range h.viewers {
		select {
		case v.send <- message:
		default:
			// Slow viewer: drop the frame rather than stall the bridge.
		}
	}
}

// Routes mounts the monitor endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/api/recent", h.handleRecent)
	mux.HandleFunc("/api/status", h.handleStatus)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Allow(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Monitor] upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.nextID++
	v := &viewer{
		id:   fmt.Sprintf("viewer_%d", h.nextID),
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	h.viewers[v.id] = v
	total := len(h.viewers)
	h.mu.Unlock()

	log.Printf("[Monitor] viewer connected: %s, total: %d", v.id, total)

	go v.readPump()
	go v.writePump()
}

// readPump discards inbound frames; viewers are read-only. It exists to
// service pongs and to notice the close.
func (v *viewer) readPump() {
	defer func() {
		v.hub.removeViewer(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(4096)
	v.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Monitor] read error: %v", err)
			}
			return
		}
	}
}

func (v *viewer) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case message, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) removeViewer(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers, v.id)
	log.Printf("[Monitor] viewer disconnected: %s, total: %d", v.id, len(h.viewers))
}

func (h *Hub) handleRecent(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Allow(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	records, err := h.hist.ListRecent(r.Context(), 50)
	if err != nil {
		log.Printf("[Monitor] list recent failed: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Allow(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.mu.RLock()
	status := map[string]any{
		"viewers":     len(h.viewers),
		"events_seen": h.eventCount,
		"uptime_s":    int64(time.Since(h.startedAt).Seconds()),
	}
	h.mu.RUnlock()
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Monitor] write response failed: %v", err)
	}
}

// noHistory backs the hub when no history store is configured.
type noHistory struct{}

func (noHistory) Close() error                  { return nil }
func (noHistory) RecordExchange(_ bridge.Event) {}

func (noHistory) ListRecent(_ context.Context, _ int) ([]history.Record, error) {
	return []history.Record{}, nil
}

func (noHistory) CountByOutcome(_ context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}
