package pipeline

import "github.com/stretchr/testify/mock"

// MockEventSink is a mock implementation of EventSink for testing.
type MockEventSink struct {
	mock.Mock
}

// SaveEvent is a mock implementation of EventSink.SaveEvent.
func (m *MockEventSink) SaveEvent(event map[string]interface{}) bool {
	args := m.Called(event)
	return args.Bool(0)
}
