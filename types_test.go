package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	session "github.com/fintrack/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger records rendered messages the way defLogger would print them.
type captureLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *captureLogger) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Debug(format string, args ...any) { l.record(format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record(format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record(format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record(format, args...) }

func (l *captureLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

// every log call site must hand the printf-style Logger a real format
// string, not leftover key-value pairs
func TestLoggerCallSitesRenderCleanly(t *testing.T) {
	ctx := context.Background()

	logger := &captureLogger{}
	store := session.NewMemoryStore("", logger)
	store.Seed(`{"v":1,"user":{"idUsuario":42,"email":"a@b.co"}}`, "%%%not-base64%%%")

	manager := session.NewManager(store, &MockIdentityClient{}, session.WithLogger(logger))

	snapshot := manager.Restore(ctx)
	assert.Equal(t, session.StateAnonymous, snapshot.State)

	_, err := manager.Login(ctx, session.Credentials{})
	require.Error(t, err)

	messages := logger.all()
	require.NotEmpty(t, messages)
	for _, msg := range messages {
		assert.NotContains(t, msg, "%!(", "unconsumed printf arguments in %q", msg)
		assert.NotContains(t, msg, "(MISSING)", "missing printf arguments in %q", msg)
	}
}
