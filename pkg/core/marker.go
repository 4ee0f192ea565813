package core

import "time"

// InfoWindow is the optional popup content attached to a marker.
type InfoWindow struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// MarkerPayload holds every display field of a marker except its position.
// The engine never interprets these; they are copied verbatim from the most
// recently supplied snapshot for the marker's id and applied immediately,
// without tweening.
type MarkerPayload struct {
	Rotation         float64    `json:"rotation"`
	Alpha            float64    `json:"alpha"`
	Draggable        bool       `json:"draggable"`
	ConsumeTapEvents bool       `json:"consumeTapEvents"`
	Flat             bool       `json:"flat"`
	Visible          bool       `json:"visible"`
	ZIndex           int        `json:"zIndex"`
	InfoWindow       InfoWindow `json:"infoWindow,omitempty"`
}

// MarkerSnapshot describes one marker at a point in time. Identity is the
// ID string, unique within a collection. Change detection compares only
// Position; the payload always passes through.
type MarkerSnapshot struct {
	ID       string        `json:"id"`
	Position Position      `json:"position"`
	Payload  MarkerPayload `json:"payload"`
}

// Emission is one rendered output of the engine: the fully materialized
// marker set at Time, with interpolated positions. Sequence increases by
// one per emission within a session.
type Emission struct {
	Time     time.Time        `json:"time"`
	Sequence uint64           `json:"sequence"`
	Markers  []MarkerSnapshot `json:"markers"`
}

// SessionInfo describes one animation session for recording backends.
type SessionInfo struct {
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"startedAt"`
	Backend   string        `json:"backend"`
	Duration  time.Duration `json:"duration"`
	FrameRate int           `json:"frameRate"`
}
