package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	corenotify "github.com/medride/dispatch/core/notify"
	"github.com/medride/dispatch/infra/logger"
)

// WSGateway delivers ride payloads to drivers connected over WebSocket. The
// notify address is the connection key registered at upgrade time.
type WSGateway struct {
	mu    sync.RWMutex
	conns map[string]*wsConn
	up    websocket.Upgrader
	log   logger.Logger
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWSGateway creates an empty gateway.
func NewWSGateway() *WSGateway {
	return &WSGateway{
		conns: make(map[string]*wsConn),
		up: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.New("ws-gateway"),
	}
}

// Handler upgrades an HTTP request to a WebSocket connection and registers
// it under the given address. A new connection for the same address replaces
// the old one.
func (g *WSGateway) Handler(address string, w http.ResponseWriter, r *http.Request) error {
	conn, err := g.up.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	g.mu.Lock()
	if prev, ok := g.conns[address]; ok {
		_ = prev.conn.Close()
	}
	g.conns[address] = &wsConn{conn: conn}
	g.mu.Unlock()
	g.log.Infof("driver connection registered: %s", address)
	return nil
}

// Send writes the payload as a JSON message to the registered connection.
// An unknown address is a delivery failure for that driver only.
func (g *WSGateway) Send(_ context.Context, address string, payload corenotify.Payload) error {
	g.mu.RLock()
	c, ok := g.conns[address]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no connection for %s", address)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Unregister closes and forgets the connection for the address.
func (g *WSGateway) Unregister(address string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.conns[address]; ok {
		_ = c.conn.Close()
		delete(g.conns, address)
	}
}

// Connected reports whether a connection is registered for the address.
func (g *WSGateway) Connected(address string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.conns[address]
	return ok
}

var _ corenotify.Gateway = (*WSGateway)(nil)
