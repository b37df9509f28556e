package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrTransport,
		ErrDecode,
		ErrRetry,
		ErrExport,
		ErrRecord,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .gpuhot.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "transport error",
			code:       ErrTransport,
			message:    "Cannot reach telemetry server",
			suggestion: "Check the server URL",
		},
		{
			name:       "decode error",
			code:       ErrDecode,
			message:    "Malformed telemetry message",
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "message and suggestion",
			err:           New(ErrConfig, "Invalid configuration", "Check .gpuhot.yaml syntax"),
			expectedParts: []string{"✗ Invalid configuration", "Check .gpuhot.yaml syntax"},
		},
		{
			name:          "cause included",
			err:           WrapWithCode(fmt.Errorf("connection refused"), ErrTransport, "Dial failed", ""),
			expectedParts: []string{"Dial failed", "connection refused"},
		},
		{
			name:        "no suggestion block when empty",
			err:         New(ErrDecode, "Bad payload", ""),
			notExpected: []string{"\n\n  \n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, out, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, out, part)
			}
			assert.True(t, strings.HasPrefix(out, "✗ "))
		})
	}
}

func TestWrapDefaultsToTransport(t *testing.T) {
	cause := errors.New("eof")
	err := Wrap(cause, "Connection lost")

	assert.Equal(t, ErrTransport, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestNewRetryExhausted(t *testing.T) {
	err := NewRetryExhausted(10)

	assert.Equal(t, ErrRetry, err.Code)
	assert.Contains(t, err.Message, "10 attempts")
	assert.NotEmpty(t, err.Suggestion)
}

func TestIsCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(ErrDecode, "bad json", ""))

	assert.True(t, IsCode(wrapped, ErrDecode))
	assert.False(t, IsCode(wrapped, ErrConfig))
	assert.False(t, IsCode(nil, ErrDecode))
	assert.False(t, IsCode(errors.New("plain"), ErrDecode))
	assert.False(t, IsCode(errors.New("plain"), ""))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "", CodeOf(nil))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, ErrExport, CodeOf(New(ErrExport, "x", "")))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "", Summary(nil))
	assert.Equal(t, "plain", Summary(errors.New("plain")))
	assert.Equal(t, "Dial failed", Summary(New(ErrTransport, "Dial failed", "retry")))
	assert.Equal(t, "Dial failed: refused",
		Summary(WrapWithCode(errors.New("refused"), ErrTransport, "Dial failed", "")))
}
