package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{
			name:      "logs when GPUHOT_DEBUG is set",
			envValue:  "1",
			expectLog: true,
		},
		{
			name:      "logs when GPUHOT_DEBUG is any value",
			envValue:  "true",
			expectLog: true,
		},
		{
			name:      "silent when GPUHOT_DEBUG is empty",
			envValue:  "",
			expectLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			t.Setenv(DebugEnv, tt.envValue)

			l := NewEnvLogger("[test]")
			l.Debug("frame %s", "flushed")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] frame flushed")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	buf := captureLog(t)

	l := NewEnvLogger("[conn]")
	l.Info("connected to %s", "ws://localhost")
	l.Warn("attempt %d failed", 3)
	l.Error("gave up")

	out := buf.String()
	assert.Contains(t, out, "[conn] connected to ws://localhost")
	assert.Contains(t, out, "[conn] WARN: attempt 3 failed")
	assert.Contains(t, out, "[conn] ERROR: gave up")
}

func TestNoop(t *testing.T) {
	buf := captureLog(t)

	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Info("hello %d", 1)
	l.Error("boom")

	require.Len(t, l.Snapshot(), 2)
	assert.True(t, l.HasLevel("info"))
	assert.True(t, l.HasLevel("error"))
	assert.False(t, l.HasLevel("warn"))
	assert.Equal(t, "hello 1", l.Snapshot()[0].Message)

	l.Clear()
	assert.Empty(t, l.Snapshot())
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Debug("msg %d", j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, l.Count("debug"))
}

func TestDefault(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	buf := NewBufferLogger()
	SetDefault(buf)

	assert.Same(t, buf, Default())
	assert.Same(t, buf, OrDefault(nil))

	other := NewBufferLogger()
	assert.Same(t, other, OrDefault(other))
}
