package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// Connection wraps a websocket connection with a write lock; gorilla
// connections do not allow concurrent writers.
type Connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewConnection(conn *websocket.Conn) *Connection {
	return &Connection{conn: conn}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

// ConnectionManager tracks which connections watch which auction and fans
// engine events out to them.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[uint64]map[*Connection]struct{}
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[uint64]map[*Connection]struct{}),
		log:         log,
	}
}

func (cm *ConnectionManager) Register(auctionID uint64, conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[*Connection]struct{})
	}
	cm.connections[auctionID][conn] = struct{}{}
	cm.log.Info("Watcher registered", "auction_id", auctionID)
}

func (cm *ConnectionManager) Unregister(auctionID uint64, conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conns, exists := cm.connections[auctionID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(cm.connections, auctionID)
		}
	}
	cm.log.Info("Watcher unregistered", "auction_id", auctionID)
}

// BroadcastEvent pushes an event to every watcher of its auction. Events
// without an auction id are not broadcast.
func (cm *ConnectionManager) BroadcastEvent(event *domain.Event) error {
	if event.AuctionID == 0 {
		return nil
	}

	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections[event.AuctionID]))
	for conn := range cm.connections[event.AuctionID] {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(event); err != nil {
			cm.log.Warn("Failed to push event to watcher",
				"auction_id", event.AuctionID, "error", err)
			cm.Unregister(event.AuctionID, conn)
			conn.Close()
		}
	}
	return nil
}
