package websocket

import (
	"sync"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/internal/services"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

// ConnectionManager is the peer registry: a mutex-guarded set of live
// connections with their display names. Broadcast works on a snapshot of
// the membership taken at call time, so receive loops can register and
// unregister concurrently with it.
type ConnectionManager struct {
	peers   map[domain.Connection]string
	mutex   sync.RWMutex
	names   *services.NameGenerator
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewConnectionManager(names *services.NameGenerator, m *metrics.Metrics,
	log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		peers:   make(map[domain.Connection]string),
		names:   names,
		metrics: m,
		log:     log,
	}
}

// Register adds the connection and returns its assigned display name.
func (cm *ConnectionManager) Register(conn domain.Connection) string {
	name := cm.names.Next()

	cm.mutex.Lock()
	cm.peers[conn] = name
	count := len(cm.peers)
	cm.mutex.Unlock()

	cm.metrics.ConnectionsActive.Set(float64(count))
	cm.log.Info("Peer connected", "name", name, "remote_addr", conn.RemoteAddr(), "peers", count)
	return name
}

// Unregister removes the connection. Removing an absent connection is a
// no-op.
func (cm *ConnectionManager) Unregister(conn domain.Connection) {
	cm.mutex.Lock()
	name, ok := cm.peers[conn]
	if ok {
		delete(cm.peers, conn)
	}
	count := len(cm.peers)
	cm.mutex.Unlock()

	if !ok {
		return
	}

	cm.names.Release(name)
	cm.metrics.ConnectionsActive.Set(float64(count))
	cm.log.Info("Peer disconnected", "name", name, "remote_addr", conn.RemoteAddr(), "peers", count)
}

// Broadcast sends text to every connection in the membership snapshot. A
// failed send drops only that connection; delivery to the rest continues.
func (cm *ConnectionManager) Broadcast(text string) {
	cm.mutex.RLock()
	snapshot := make([]domain.Connection, 0, len(cm.peers))
	for conn := range cm.peers {
		snapshot = append(snapshot, conn)
	}
	cm.mutex.RUnlock()

	for _, conn := range snapshot {
		if err := conn.SendText(text); err != nil {
			cm.log.Error("Failed to send to peer", "remote_addr", conn.RemoteAddr(), "error", err)
			cm.Unregister(conn)
			conn.Close()
		}
	}

	cm.metrics.BroadcastsTotal.Inc()
}

func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.peers)
}
