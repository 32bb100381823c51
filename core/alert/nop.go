package alert

import (
	"context"
	"sync"
)

// NopPublisher discards every event. It stands in when no transport is
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

// Recorded is one captured publication.
type Recorded struct {
	Topic   string
	Key     string
	Payload any
}

// MockPublisher records publications for assertions in tests.
type MockPublisher struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (m *MockPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, Recorded{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns a copy of the captured publications.
func (m *MockPublisher) Events() []Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Recorded, len(m.events))
	copy(out, m.events)
	return out
}

// ByTopic filters the captured publications by topic.
func (m *MockPublisher) ByTopic(topic string) []Recorded {
	var out []Recorded
	for _, e := range m.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
