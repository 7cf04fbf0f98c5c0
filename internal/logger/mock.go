package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is a single message captured by MockLogger.
type Entry struct {
	Level   string
	Message string
}

// MockLogger implements Logger by recording every message. It is used by
// tests across the module and is safe for concurrent use.
type MockLogger struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(level, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Info implements Logger.
func (m *MockLogger) Info(format string, args ...any) {
	m.record("info", format, args...)
}

// Warning implements Logger.
func (m *MockLogger) Warning(format string, args ...any) {
	m.record("warning", format, args...)
}

// Error implements Logger.
func (m *MockLogger) Error(format string, args ...any) {
	m.record("error", format, args...)
}

// InfoToUser implements Logger.
func (m *MockLogger) InfoToUser(format string, args ...any) {
	m.record("user", format, args...)
}

// WarningToUser implements Logger.
func (m *MockLogger) WarningToUser(format string, args ...any) {
	m.record("user-warning", format, args...)
}

// Success implements Logger.
func (m *MockLogger) Success(format string, args ...any) {
	m.record("success", format, args...)
}

// StatusMessage implements Logger.
func (m *MockLogger) StatusMessage(format string, args ...any) {
	m.record("status", format, args...)
}

// Close marks the logger closed.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockLogger) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Entries returns a copy of everything recorded so far.
func (m *MockLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Messages returns the recorded messages for level, or all of them when
// level is empty.
func (m *MockLogger) Messages(level string) []string {
	var out []string
	for _, e := range m.Entries() {
		if level == "" || e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any recorded message contains substr.
func (m *MockLogger) Contains(substr string) bool {
	for _, e := range m.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Count returns how many recorded messages contain substr.
func (m *MockLogger) Count(substr string) int {
	n := 0
	for _, e := range m.Entries() {
		if strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
