/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventPlanCreated       EventType = "plan.created"
	EventPlanRescheduled   EventType = "plan.rescheduled"
	EventPlanSplit         EventType = "plan.split"
	EventPlanCompleted     EventType = "plan.completed"
	EventConflictDetected  EventType = "schedule.conflict_detected"
	EventAnalysisCompleted EventType = "analysis.completed"
	EventRestSuggested     EventType = "analysis.rest_suggested"
	EventWorkloadAdjusted  EventType = "analysis.workload_adjusted"

	// Cache invalidation events
	EventStudentUpdated EventType = "cache.student_updated"
	EventPlanUpdated    EventType = "cache.plan_updated"
	EventContentUpdated EventType = "cache.content_updated"

	// Audit events (for operations that need explicit audit logging)
	EventAuditAPIKeyCreate EventType = "audit.apikey.create"
	EventAuditAPIKeyRevoke EventType = "audit.apikey.revoke"
	EventAuditPlanReorder  EventType = "audit.plan.reorder"
	EventAuditAnalysisRun  EventType = "audit.analysis.run"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is the write side of the bus. Components that only emit
// events take a Publisher so the server can hand them a cluster-wide
// bridge instead of the in-process bus.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
