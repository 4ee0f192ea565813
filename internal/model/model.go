// Package model defines the database schema for recorded animation
// sessions. Positions are persisted both as raw x/y columns (for plain SQL
// queries) and as EPSG:3857 WKB blobs (for spatially aware consumers).
package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every struct migrated into the schema.
var DatabaseModels = []interface{}{
	&Session{},
	&Marker{},
	&MarkerFrame{},
}

// Session is one run of the animation engine from start to dispose.
type Session struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Name       string    `json:"name" gorm:"size:128"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	Backend    string    `json:"backend" gorm:"size:16"` // frame or timer
	DurationMs int64     `json:"durationMs"`             // configured leg duration
	FrameRate  int       `json:"frameRate"`              // timer backend only, 0 otherwise
}

func (*Session) TableName() string {
	return "sessions"
}

// Marker registers one marker id within a session.
type Marker struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_marker_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Name      string    `json:"name" gorm:"size:128;index:idx_marker_name"` // engine-level marker id
	FirstSeen time.Time `json:"firstSeen"`
}

func (*Marker) TableName() string {
	return "markers"
}

// MarkerFrame is one marker's interpolated state within one emission.
type MarkerFrame struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint    `json:"sessionId" gorm:"index:idx_markerframe_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	MarkerID  uint    `json:"markerId" gorm:"index:idx_markerframe_marker_id"`
	Marker    Marker  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MarkerID;"`

	Time     time.Time      `json:"time"`
	Sequence uint64         `json:"sequence" gorm:"index:idx_markerframe_sequence"` // emission counter
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Position []byte         `json:"-"`       // EPSG:3857 WKB
	Payload  datatypes.JSON `json:"payload"` // pass-through display fields
}

func (*MarkerFrame) TableName() string {
	return "marker_frames"
}
