// Package storage defines the recording backend contract. A backend
// receives the engine's render emissions and persists or streams them;
// the engine itself never depends on storage.
package storage

import "github.com/mapmotion/mapmotion/pkg/core"

// Backend is the interface all recording implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(info core.SessionInfo) error
	EndSession() error

	// RecordEmission persists one rendered marker set.
	RecordEmission(e core.Emission) error
}

// Exportable is an optional interface for backends that produce a file
// artifact when the session ends.
type Exportable interface {
	ExportedFilePath() string
}
