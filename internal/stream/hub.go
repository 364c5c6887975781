// Package stream is the trade stream broadcaster (spec §4.6): it
// tracks currently attached WebSocket consumers and pushes every
// newly recorded v2 trade to all of them. Grounded on the teacher's
// Hub/Client pattern (uhyunpark-hyperlicked/pkg/api/websocket.go),
// trimmed to the unidirectional push-only shape this system needs —
// no subscription channels, since there is exactly one stream.
package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"energyexchange/internal/domain"
	"energyexchange/internal/ledger"
	"energyexchange/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of attached trade-stream consumers and
// fans out every broadcast message to each of them.
type Hub struct {
	log        *zap.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's single-goroutine event loop; it owns the clients
// map, so nothing else may touch it directly (spec §5 "Stream
// consumers are held in a set guarded implicitly by the
// single-threaded model").
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// consumer unwritable: drop it rather than block the hub
					// (spec §5 "a consumer that becomes unwritable is removed").
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Broadcast records nothing itself — the caller already recorded the
// trade through the ledger — it only encodes and fans the trade out.
// Each push is one unlength-delimited wire message per WebSocket
// frame, preserving the source's framing behavior (spec §9 "stream
// framing").
func (h *Hub) Broadcast(t domain.Trade) {
	if !t.IsV2 {
		return
	}
	obj := streamMessage(t)
	buf, err := wire.Encode(obj, wire.Version2)
	if err != nil {
		h.log.Warn("stream encode failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- buf:
	default:
		h.log.Warn("stream broadcast channel full, dropping trade", zap.String("trade_id", t.TradeID))
	}
}

func streamMessage(t domain.Trade) wire.Object {
	return wire.Object{
		{Name: "trade_id", Value: wire.Str(t.TradeID)},
		{Name: "buyer", Value: wire.Str(t.Buyer)},
		{Name: "seller", Value: wire.Str(t.Seller)},
		{Name: "price", Value: wire.Int(t.Price)},
		{Name: "quantity", Value: wire.Int(t.Quantity)},
		{Name: "delivery_start", Value: wire.Int(t.ContractKey.DeliveryStart)},
		{Name: "delivery_end", Value: wire.Int(t.ContractKey.DeliveryEnd)},
		{Name: "timestamp", Value: wire.Int(t.Timestamp)},
	}
}

// LiveSink is the ordinary, non-batch trade sink: it records through
// the ledger and immediately broadcasts v2 trades (spec §4.6
// record_and_broadcast).
type LiveSink struct {
	Ledger *ledger.Ledger
	Hub    *Hub
}

func (s LiveSink) RecordTrade(f ledger.NewTradeFields) domain.Trade {
	trade := s.Ledger.RecordTrade(f)
	if trade.IsV2 {
		s.Hub.Broadcast(trade)
	}
	return trade
}

// Client is one attached WebSocket consumer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Serve upgrades the request and runs the client's read/write pumps
// until the connection closes. Blocks until then; call from its own
// goroutine per HTTP request.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{hub: hub, conn: conn, send: make(chan []byte, clientSendSize)}
	hub.register <- c

	go c.readPump()
	c.writePump()
	return nil
}

// readPump exists only to detect client disconnects and keep the
// pong deadline fresh; the stream is unidirectional, so any inbound
// data frame is discarded (spec §6 "unidirectional v2-only trade
// push").
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
