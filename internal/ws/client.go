package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/models"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long we keep a silent connection before dropping it.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxCommandSize = 1024
)

// CommandFrame is an inbound message from a terminal. The payload shape
// depends on the command type.
type CommandFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type cartelaPayload struct {
	CartelaID int `json:"cartela_id"`
}

type endPayload struct {
	Reason string `json:"reason"`
}

// client owns one terminal connection: a read loop dispatching commands to
// the hub and a write loop draining the shop's event feed.
type client struct {
	conn   *websocket.Conn
	hub    *game.Hub
	logger *logging.Logger

	shopID int64
	connID string
	actor  models.Actor

	// events is the broadcaster outbox for this connection.
	events <-chan models.Event

	// direct carries command errors that only this terminal should see.
	direct chan models.Event
}

func (c *client) readLoop() {
	defer func() {
		c.hub.Detach(c.shopID, c.connID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame CommandFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", map[string]interface{}{
					"shop_id": c.shopID,
					"conn_id": c.connID,
					"error":   err.Error(),
				})
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *client) dispatch(frame CommandFrame) {
	var err error
	switch frame.Type {
	case "start":
		err = c.hub.Start(c.shopID)
	case "pause":
		err = c.hub.Pause(c.shopID)
	case "draw":
		_, _, err = c.hub.DrawNext(c.shopID)
	case "end":
		var p endPayload
		_ = json.Unmarshal(frame.Payload, &p)
		if p.Reason == "" {
			p.Reason = "manual"
		}
		err = c.hub.End(c.shopID, p.Reason)
	case "verify":
		var p cartelaPayload
		if err = json.Unmarshal(frame.Payload, &p); err == nil {
			_, err = c.hub.VerifyWin(c.shopID, p.CartelaID)
		}
	case "book":
		var p cartelaPayload
		if err = json.Unmarshal(frame.Payload, &p); err == nil {
			err = c.hub.Book(c.shopID, p.CartelaID, c.actor.Username)
		}
	case "unbook":
		var p cartelaPayload
		if err = json.Unmarshal(frame.Payload, &p); err == nil {
			err = c.hub.Unbook(c.shopID, p.CartelaID, c.actor.Username, c.actor.IsSupervisor())
		}
	default:
		c.sendError(frame.Type, "unknown command")
		return
	}

	if err != nil {
		c.sendError(frame.Type, err.Error())
	}
}

// sendError drops the frame rather than block if the write loop is saturated.
func (c *client) sendError(command, message string) {
	ev := models.Event{
		Type:   models.EventError,
		ShopID: c.shopID,
		Payload: models.ErrorPayload{
			Command: command,
			Message: message,
		},
	}
	select {
	case c.direct <- ev:
	default:
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Outbox closed: the connection was detached or replaced.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case ev := <-c.direct:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
