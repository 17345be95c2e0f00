package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers cannot set Authorization headers on websocket requests,
		// so the deployment is expected to pin allowed origins here.
		return true
	},
}

type WebSocketHandler struct {
	registry *game.Registry
	resolver *services.IdentityResolver
	log      *slog.Logger
}

func NewWebSocketHandler(registry *game.Registry, resolver *services.IdentityResolver, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		resolver: resolver,
		log:      log,
	}
}

// ServeWs upgrades the connection and starts the client pumps. Room
// membership is negotiated over the socket with a join_room event, not in
// the URL, so one endpoint serves every room.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	// Resolve identity before upgrading: a bad token should produce a clean
	// 401, not a websocket close frame.
	identity, err := h.resolver.Resolve(r)
	if err != nil {
		h.log.Warn("websocket identity rejected", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "identity", identity.Key, "error", err)
		return
	}

	client := game.NewClient(h.registry, conn, identity, h.log)

	go client.WritePump()
	go client.ReadPump()

	// The path-addressed variant joins immediately; the bare /ws endpoint
	// waits for the client's join_room event instead.
	if roomKey := chi.URLParam(r, "roomKey"); roomKey != "" {
		payload := game.JoinRoomPayload{RoomKey: roomKey}
		if side := models.Side(r.URL.Query().Get("side")); side == models.SideLeft || side == models.SideRight {
			payload.RequestedSide = &side
		}
		if profile := models.SpeedProfile(r.URL.Query().Get("speed_profile")); profile.Valid() {
			payload.SpeedProfile = &profile
		}
		payload.Spectate = r.URL.Query().Get("spectate") == "true"
		client.Join(payload)
	}
}
