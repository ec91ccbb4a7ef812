package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/reatured/handvis/internal/app"
	"github.com/reatured/handvis/internal/landmark"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FramesHandler is the landmark ingress: each WebSocket message is one
// frame set of 0-2 hands which is run through the pipeline before the
// next message is read, keeping processing frame-synchronous.
type FramesHandler struct {
	app *app.App
}

// NewFramesHandler creates the ingress handler.
func NewFramesHandler(a *app.App) *FramesHandler {
	return &FramesHandler{app: a}
}

// ServeHTTP upgrades the connection and consumes frame sets until the
// client disconnects. Each connection is one tracking session.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := uuid.New().String()
	log.Printf("frame session %s connected from %s", session, r.RemoteAddr)
	defer func() {
		h.app.ResetTracking()
		log.Printf("frame session %s closed", session)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var fs landmark.FrameSet
		if err := json.Unmarshal(data, &fs); err != nil {
			log.Printf("frame session %s: bad frame: %v", session, err)
			continue
		}
		h.app.ProcessFrameSet(&fs)
	}
}

// jointsMessage is one egress update: the latest commanded joint values
// plus per-side tracking state.
type jointsMessage struct {
	Joints    map[string]float64 `json:"joints"`
	Hands     []handState        `json:"hands"`
	Timestamp int64              `json:"timestamp"`
}

type handState struct {
	Side       landmark.Side     `json:"side"`
	Tracked    bool              `json:"tracked"`
	Calibrated bool              `json:"calibrated"`
	Wrist      *landmark.Point3D `json:"wrist,omitempty"`
}

// JointsHandler broadcasts joint commands to all connected clients.
type JointsHandler struct {
	app     *app.App
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewJointsHandler creates the egress handler and starts its broadcast
// loop.
func NewJointsHandler(a *app.App) *JointsHandler {
	h := &JointsHandler{
		app:     a,
		clients: make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *JointsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends the current joint state to all connected clients.
func (h *JointsHandler) broadcast() {
	ticker := time.NewTicker(33 * time.Millisecond) // ~30 FPS
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		msg, err := json.Marshal(h.snapshot())
		if err != nil {
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}

func (h *JointsHandler) snapshot() jointsMessage {
	msg := jointsMessage{
		Joints:    map[string]float64{},
		Timestamp: time.Now().UnixMilli(),
	}
	if mem, ok := h.app.Adapter().(interface{ Values() map[string]float64 }); ok {
		msg.Joints = mem.Values()
	}
	cal := h.app.Calibration()
	for _, side := range []landmark.Side{landmark.Left, landmark.Right} {
		state := handState{
			Side:       side,
			Calibrated: cal.Calibrated(side),
		}
		if pos, ok := h.app.Position(side); ok {
			state.Tracked = true
			state.Wrist = &pos
		}
		msg.Hands = append(msg.Hands, state)
	}
	return msg
}
