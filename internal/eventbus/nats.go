/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus across instances
// over NATS.
package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/studyflow/internal/events"
)

const subjectPrefix = "studyflow.events."

// NATSBus mirrors local events onto NATS subjects and replays remote
// events into the local bus.
type NATSBus struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	local  *events.Bus
	logger zerolog.Logger
	nodeID string
}

var _ events.Publisher = (*NATSBus)(nil)

// natsMessage is the wire format for a bridged event.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

// New connects to NATS and starts mirroring events. The local bus
// keeps working when the connection drops.
func New(url string, local *events.Bus, logger zerolog.Logger) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	bus := &NATSBus{
		conn:   conn,
		local:  local,
		logger: logger.With().Str("component", "eventbus").Logger(),
		nodeID: uuid.NewString(),
	}

	sub, err := conn.Subscribe(subjectPrefix+">", bus.handleRemote)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	bus.sub = sub

	bus.logger.Info().Str("url", url).Msg("NATS event bridge connected")
	return bus, nil
}

// Publish sends the event locally and onto NATS.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nb.nodeID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		nb.logger.Debug().Err(err).Msg("marshal event")
		return
	}
	if err := nb.conn.Publish(subjectPrefix+string(eventType), data); err != nil {
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("publish to nats failed")
	}
}

// handleRemote replays events from other instances into the local
// bus. Own events are skipped by node ID.
func (nb *NATSBus) handleRemote(m *nats.Msg) {
	var msg natsMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		nb.logger.Debug().Err(err).Msg("unmarshal remote event")
		return
	}
	if msg.NodeID == nb.nodeID {
		return
	}

	eventType := msg.EventType
	if eventType == "" {
		eventType = events.EventType(strings.TrimPrefix(m.Subject, subjectPrefix))
	}
	nb.local.Publish(eventType, msg.Payload)
}

// Close drains the subscription and closes the connection.
func (nb *NATSBus) Close() error {
	if nb.sub != nil {
		if err := nb.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	nb.conn.Close()
	return nil
}
