package websocket

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-house/internal/engine"
	"auction-house/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades watchers onto the live event stream of one auction.
type Handler struct {
	engine      *engine.Engine
	connManager *ConnectionManager
	log         logger.Logger
}

func NewHandler(eng *engine.Engine, connManager *ConnectionManager, log logger.Logger) *Handler {
	return &Handler{
		engine:      eng,
		connManager: connManager,
		log:         log,
	}
}

func (h *Handler) HandleConnection(c echo.Context) error {
	auctionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	// Watching requires an existing auction, active or not; historical
	// auctions can still emit withdrawal events.
	if _, err := h.engine.GetAuctionDetails(c.Request().Context(), auctionID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return nil
	}

	wsConn := NewConnection(conn)
	h.connManager.Register(auctionID, wsConn)

	go h.readLoop(wsConn, auctionID)
	return nil
}

// readLoop drains inbound frames so pings are answered and disconnects are
// noticed; watchers never send application messages.
func (h *Handler) readLoop(conn *Connection, auctionID uint64) {
	defer func() {
		h.connManager.Unregister(auctionID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}
