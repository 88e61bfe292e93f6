// Package hub implements a channel-based websocket broadcast hub. The
// dashboard uses one hub per feed (status, logs, camera frames).
package hub

// MessageType selects the websocket frame type for a broadcast.
type MessageType int

const (
	// JSONMessage is sent as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is sent as a binary frame (JPEG camera frames).
	BinaryMessage
)

// Message is one payload queued for broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
