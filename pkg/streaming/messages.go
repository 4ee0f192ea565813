// Package streaming defines the wire protocol for live session streaming.
package streaming

import (
	"encoding/json"

	"github.com/mapmotion/mapmotion/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeEmission     = "emission"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new recording session.
type StartSessionPayload struct {
	Session core.SessionInfo `json:"session"`
}

// EmissionPayload carries one rendered frame of marker positions.
type EmissionPayload struct {
	Emission core.Emission `json:"emission"`
}
