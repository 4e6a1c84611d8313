package ws

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/id"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errRateLimited = errors.New("rate limit exceeded")

// HandleConnection upgrades the request and serves the client until it
// disconnects. The read loop runs on the request goroutine.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewClientID(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(cl) {
		conn.Close()
		return
	}
	defer h.unregister(cl)

	h.logger.Info("Stream client connected",
		zap.String("client_id", cl.id.String()),
		zap.String("remote", c.ClientIP()))

	go func() {
		defer h.wg.Done()
		h.writePump(cl)
	}()

	// Send the current session so the renderer can draw immediately
	h.sendTo(cl, types.NewMessage(types.MsgFrame, h.store.Snapshot()))

	h.readPump(cl)
	h.logger.Info("Stream client disconnected", zap.String("client_id", cl.id.String()))
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("client_id", c.id.String()), zap.Error(err))
			}
			return
		}

		var msg types.ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendTo(c, types.NewError("malformed message"))
			continue
		}
		h.metrics.RecordWSMessage(inDirection, string(msg.Type))

		if !h.limiter.Allow(c.id.String()) {
			h.sendTo(c, types.NewError(errRateLimited.Error()))
			continue
		}

		reply, err := h.dispatch(&msg)
		if err != nil {
			h.sendTo(c, types.NewError(err.Error()))
			continue
		}
		if reply != nil {
			h.sendTo(c, *reply)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// dispatch applies one gesture to the store. Gestures that return a value
// get a result reply; the others are acknowledged by the next frame.
func (h *Hub) dispatch(msg *types.ClientMessage) (*types.ServerMessage, error) {
	st := h.store

	switch msg.Type {
	case types.MsgClarity:
		v, err := requireValue(msg)
		if err != nil {
			return nil, err
		}
		st.SetClarity(v)

	case types.MsgFocus:
		v, err := requireValue(msg)
		if err != nil {
			return nil, err
		}
		st.SetFocus(v)

	case types.MsgSprayStrength:
		v, err := requireValue(msg)
		if err != nil {
			return nil, err
		}
		st.SetSprayStrength(v)

	case types.MsgCategory:
		c, err := soundscape.ParseCategory(msg.Category)
		if err != nil {
			return nil, err
		}
		st.SetCategory(c)

	case types.MsgAudio:
		v, err := requireValue(msg)
		if err != nil {
			return nil, err
		}
		st.SetAudioStarted(v > 0)

	case types.MsgSpray:
		if msg.X == nil || msg.Y == nil {
			return nil, fmt.Errorf("%s requires x and y", msg.Type)
		}
		st.Spray(*msg.X, *msg.Y)

	case types.MsgClosureComplete:
		return result(msg.Type, st.CompleteClosure(), nil), nil

	case types.MsgCaptureEntity:
		if msg.ID == "" {
			return nil, fmt.Errorf("%s requires id", msg.Type)
		}
		e, ok := st.CaptureEntity(msg.ID)
		if !ok {
			return result(msg.Type, false, nil), nil
		}
		return result(msg.Type, true, e), nil

	case types.MsgCaptureRecord:
		rec, ok := st.CaptureRecord()
		if !ok {
			return result(msg.Type, false, nil), nil
		}
		return result(msg.Type, true, rec), nil

	case types.MsgCaptureMoment:
		m, ok := st.CaptureMoment()
		if !ok {
			return result(msg.Type, false, nil), nil
		}
		return result(msg.Type, true, m), nil

	case types.MsgToggleLoop:
		c, err := soundscape.ParseCategory(msg.Category)
		if err != nil {
			return nil, err
		}
		looping := st.ToggleTrackLoop(c)
		return result(msg.Type, true, gin.H{"category": c, "looping": looping}), nil

	case types.MsgClearTrack:
		c, err := soundscape.ParseCategory(msg.Category)
		if err != nil {
			return nil, err
		}
		st.ClearTrack(c)

	case types.MsgDeleteNote:
		c, err := soundscape.ParseCategory(msg.Category)
		if err != nil {
			return nil, err
		}
		return result(msg.Type, st.DeleteNote(c, msg.ID), nil), nil

	case types.MsgRename:
		return result(msg.Type, st.RenameRecord(msg.ID, msg.Name), nil), nil

	case types.MsgDeleteRecord:
		return result(msg.Type, st.DeleteRecord(msg.ID), nil), nil

	case types.MsgClearRecords:
		st.ClearRecords()

	case types.MsgPing:
		reply := types.NewMessage(types.MsgPong, nil)
		return &reply, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil, nil
}

func requireValue(msg *types.ClientMessage) (float64, error) {
	if msg.Value == nil {
		return 0, fmt.Errorf("%s requires value", msg.Type)
	}
	return *msg.Value, nil
}

func result(req types.MessageType, ok bool, data any) *types.ServerMessage {
	msg := types.NewResult(req, ok, data)
	return &msg
}
