// Package websocket streams recording sessions to a remote collector over
// a single WebSocket connection. Session boundaries are acknowledged by the
// server; emission frames are fire-and-forget.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/streaming"
)

// Backend streams session data to a collector. It implements
// storage.Backend but not storage.Exportable.
type Backend struct {
	link *link
	cfg  config.WebsocketConfig
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebsocketConfig, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		link: newLink(log),
		cfg:  cfg,
	}
}

// Init connects to the collector.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.link.shutdown()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartSession announces the session and waits for the server ack. The
// encoded message is cached so it can be replayed after a reconnect.
func (b *Backend) StartSession(info core.SessionInfo) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: info})
	if err != nil {
		return err
	}

	b.link.mu.Lock()
	b.link.sessionGreeting = data
	b.link.mu.Unlock()

	return b.link.enqueueAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.link.enqueueAndWait(data, streaming.TypeEndSession, ackTimeout)

	// Clear the cached greeting regardless of the ack outcome.
	b.link.mu.Lock()
	b.link.sessionGreeting = nil
	b.link.mu.Unlock()

	return err
}

// RecordEmission streams one rendered frame, fire-and-forget.
func (b *Backend) RecordEmission(e core.Emission) error {
	data, err := marshalEnvelope(streaming.TypeEmission, streaming.EmissionPayload{Emission: e})
	if err != nil {
		return err
	}
	b.link.enqueue(data)
	return nil
}
