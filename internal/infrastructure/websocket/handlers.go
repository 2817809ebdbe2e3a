package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/services"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PeerConnection adapts a gorilla connection to domain.Connection. Writes
// are serialized; gorilla allows only one concurrent writer.
type PeerConnection struct {
	conn    *websocket.Conn
	id      string
	writeMu sync.Mutex
}

func NewPeerConnection(conn *websocket.Conn) *PeerConnection {
	return &PeerConnection{
		conn: conn,
		id:   uuid.NewString(),
	}
}

func (pc *PeerConnection) SendText(text string) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (pc *PeerConnection) Close() error {
	return pc.conn.Close()
}

func (pc *PeerConnection) RemoteAddr() string {
	return pc.conn.RemoteAddr().String()
}

func (pc *PeerConnection) ID() string {
	return pc.id
}

// ChatHandler owns the websocket endpoint: it upgrades, registers the peer
// and runs its receive loop until the peer goes away.
type ChatHandler struct {
	registry   domain.PeerRegistry
	dispatcher *services.Dispatcher
	log        logger.Logger
}

func NewChatHandler(registry domain.PeerRegistry, dispatcher *services.Dispatcher,
	log logger.Logger) *ChatHandler {
	return &ChatHandler{
		registry:   registry,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (h *ChatHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	peer := NewPeerConnection(conn)
	name := h.registry.Register(peer)

	go h.handleMessages(peer, name)
}

// handleMessages is one peer's receive loop. Consecutive messages from the
// same peer broadcast in receive order; peers never block each other.
func (h *ChatHandler) handleMessages(peer *PeerConnection, name string) {
	defer func() {
		h.registry.Unregister(peer)
		peer.Close()
	}()

	for {
		msgType, payload, err := peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Info("Peer closed connection", "name", name, "conn_id", peer.ID())
			} else {
				h.log.Error("Failed to read message", "name", name, "conn_id", peer.ID(), "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := h.dispatcher.Dispatch(context.Background(), name, string(payload))
		h.registry.Broadcast(fmt.Sprintf("%s: %s", name, reply))
	}
}
