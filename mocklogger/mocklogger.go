// mocklogger/mocklogger.go
package mocklogger

import (
	"errors"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockLogger is a mock type for the Logger interface.
//
// Calls are recorded with testify's mock.Mock. Tests only need to register expectations
// for the methods they assert on: unexpected calls are accepted when the logger was built
// with NewPermissiveMockLogger.
type MockLogger struct {
	mock.Mock
	logLevel logger.LogLevel
}

// NewMockLogger creates a strict MockLogger: every call must have a matching expectation.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// NewPermissiveMockLogger creates a MockLogger that records every call without requiring
// expectations. Use AssertCalled / AssertNotCalled against it.
func NewPermissiveMockLogger() *MockLogger {
	m := &MockLogger{}
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Panic", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Maybe().Return(nil)
	}
	m.On("With", mock.Anything).Maybe()
	m.On("Sync").Maybe().Return(nil)
	return m
}

// Ensure MockLogger implements the logger.Logger interface from the logger package
var _ logger.Logger = (*MockLogger)(nil)

// GetLogLevel returns the level set with SetLevel.
func (m *MockLogger) GetLogLevel() logger.LogLevel {
	return m.logLevel
}

// SetLevel sets the logging level of the MockLogger.
func (m *MockLogger) SetLevel(level logger.LogLevel) {
	m.logLevel = level
}

// With records the call and returns the same mock so calls on the child are observable.
func (m *MockLogger) With(fields ...zap.Field) logger.Logger {
	m.Called(fields)
	return m
}

// Debug logs a message at the Debug level.
func (m *MockLogger) Debug(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Info logs a message at the Info level.
func (m *MockLogger) Info(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Warn logs a message at the Warn level.
func (m *MockLogger) Warn(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Error records the call and returns an error carrying msg, mirroring the real logger.
func (m *MockLogger) Error(msg string, fields ...zap.Field) error {
	m.Called(msg, fields)
	return errors.New(msg)
}

// Panic records the call and panics.
func (m *MockLogger) Panic(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
	panic(msg)
}

// Fatal records the call. It does not exit.
func (m *MockLogger) Fatal(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Sync records the call.
func (m *MockLogger) Sync() error {
	args := m.Called()
	return args.Error(0)
}
