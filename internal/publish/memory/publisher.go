// Package memory contains an in-memory run-event publisher for local runs
// and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event is one published run event. Data holds the JSON encoding of the
// payload, matching what the Pub/Sub publisher would send.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher keeps published run events in memory for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes the payload the same way the wire publisher does and
// records it under a sequential pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.events)+1)
	p.events = append(p.events, Event{ID: id, Topic: topic, Data: data})
	return id, nil
}

// Events returns the recorded run events.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
