package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/dossier/pkg/eventstream"
)

// ErrPublishFailed is returned by MockPublisher when FailPublish is set.
var ErrPublishFailed = errors.New("mock publish failed")

// MockPublisher is a test eventstream publisher that records every event.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.SessionFinishedEvent
	closed bool

	// FailPublish causes PublishSession to return ErrPublishFailed.
	FailPublish bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishSession(_ context.Context, event *eventstream.SessionFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}
	if m.FailPublish {
		return ErrPublishFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events in order.
func (m *MockPublisher) Events() []*eventstream.SessionFinishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.SessionFinishedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
