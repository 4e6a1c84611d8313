package types

import "time"

// MessageType tags every WebSocket message
type MessageType string

// Inbound gestures
const (
	MsgClarity         MessageType = "clarity"
	MsgFocus           MessageType = "focus"
	MsgSprayStrength   MessageType = "spray_strength"
	MsgCategory        MessageType = "category"
	MsgAudio           MessageType = "audio"
	MsgSpray           MessageType = "spray"
	MsgClosureComplete MessageType = "closure_complete"
	MsgCaptureEntity   MessageType = "capture_entity"
	MsgCaptureRecord   MessageType = "capture_record"
	MsgCaptureMoment   MessageType = "capture_moment"
	MsgToggleLoop      MessageType = "toggle_loop"
	MsgClearTrack      MessageType = "clear_track"
	MsgDeleteNote      MessageType = "delete_note"
	MsgRename          MessageType = "rename"
	MsgDeleteRecord    MessageType = "delete_record"
	MsgClearRecords    MessageType = "clear_records"
	MsgPing            MessageType = "ping"
)

// Outbound messages
const (
	MsgFrame  MessageType = "frame"  // session snapshot for the renderer
	MsgCue    MessageType = "cue"    // audio instruction for the synth
	MsgEvent  MessageType = "event"  // store notification
	MsgResult MessageType = "result" // reply to a gesture that returns something
	MsgError  MessageType = "error"
	MsgPong   MessageType = "pong"
)

// ClientMessage is one inbound WebSocket message. Only the fields used by
// Type are read. For audio, a positive Value starts and zero stops.
type ClientMessage struct {
	Type     MessageType `json:"type"`
	X        *float64    `json:"x,omitempty"`
	Y        *float64    `json:"y,omitempty"`
	Value    *float64    `json:"value,omitempty"`
	ID       string      `json:"id,omitempty"`
	Category string      `json:"category,omitempty"`
	Name     string      `json:"name,omitempty"`
}

// ServerMessage is one outbound WebSocket message
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Request   MessageType `json:"request,omitempty"`
	OK        *bool       `json:"ok,omitempty"`
	Data      any         `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage builds an outbound message stamped with the current time
func NewMessage(t MessageType, data any) ServerMessage {
	return ServerMessage{Type: t, Data: data, Timestamp: time.Now().UnixMilli()}
}

// NewResult builds the reply to a gesture
func NewResult(req MessageType, ok bool, data any) ServerMessage {
	msg := NewMessage(MsgResult, data)
	msg.Request = req
	msg.OK = &ok
	return msg
}

// NewError builds an error reply
func NewError(msg string) ServerMessage {
	out := NewMessage(MsgError, nil)
	out.Message = msg
	return out
}
