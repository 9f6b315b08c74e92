package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait = time.Second
	// updates arriving faster than this are coalesced
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	updates, unsubscribe := s.subscribe()
	defer unsubscribe()

	c := &client{ws: ws}
	if err := c.sync(r.Context(), updates, s.Latest()); err != nil && isError(err) {
		s.logger.Debug("websocket closed", zap.Error(err))
	}
}

// client streams snapshots to one websocket. Writes are serialized; reads
// only drive the pong handler and notice disconnects.
type client struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *client) sync(ctx context.Context, updates <-chan Snapshot, first Snapshot) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readMessages()
	})
	group.Go(func() error {
		return c.pingPong(gctx)
	})
	group.Go(func() error {
		return c.publish(gctx, channerics.OrDone(gctx.Done(), updates), first)
	})
	group.Go(func() error {
		<-gctx.Done()
		return c.ws.Close()
	})

	return group.Wait()
}

func (c *client) readMessages() error {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *client) pingPong(ctx context.Context) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func (c *client) publish(ctx context.Context, updates <-chan Snapshot, first Snapshot) error {
	if err := c.write(first); err != nil {
		return err
	}

	var pending *Snapshot
	flush := channerics.NewTicker(ctx.Done(), pubResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			pending = &snap
		case <-flush:
			if pending == nil {
				continue
			}
			if err := c.write(*pending); err != nil {
				return err
			}
			pending = nil
		}
	}
}

func (c *client) write(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(snap)
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
