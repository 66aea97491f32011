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
		ErrInput,
		ErrKey,
		ErrSSH,
		ErrRemote,
		ErrExec,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	err := New(ErrInput, "Invalid destination format. Use username@hostname.", "Example: keyprov alice@example.com")

	assert.Equal(t, ErrInput, err.Code)
	assert.Equal(t, "Invalid destination format. Use username@hostname.", err.Message)
	assert.Equal(t, "Example: keyprov alice@example.com", err.Suggestion)
	assert.Nil(t, err.Cause)
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "Can't reach host")

	assert.Equal(t, ErrSSH, err.Code, "Wrap defaults to the SSH code")
	assert.Equal(t, cause, err.Cause)
	assert.True(t, errors.Is(err, cause))
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapWithCode(cause, ErrRemote, "Couldn't read authorized_keys", "Check permissions on ~/.ssh")

	assert.Equal(t, ErrRemote, err.Code)
	assert.Equal(t, "Check permissions on ~/.ssh", err.Suggestion)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		excludes []string
	}{
		{
			name:     "message only",
			err:      New(ErrKey, "Invalid public key format", ""),
			contains: []string{"✗ Invalid public key format"},
		},
		{
			name: "message with cause and suggestion",
			err: WrapWithCode(errors.New("dial tcp: i/o timeout"), ErrSSH,
				"Can't reach 'db1'", "Check the hostname and your network connection."),
			contains: []string{
				"✗ Can't reach 'db1'",
				"  dial tcp: i/o timeout",
				"  Check the hostname and your network connection.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			assert.True(t, strings.HasPrefix(out, "✗ "))
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(ErrRemote, "append failed", "")
	wrapped := fmt.Errorf("install: %w", err)

	assert.True(t, IsCode(err, ErrRemote))
	assert.True(t, IsCode(wrapped, ErrRemote))
	assert.False(t, IsCode(err, ErrSSH))
	assert.False(t, IsCode(nil, ErrRemote))
	assert.False(t, IsCode(errors.New("plain"), ErrRemote))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, ExitOK},
		{"declined prompt", ErrDeclined, ExitUsage},
		{"wrapped decline", fmt.Errorf("keygen: %w", ErrDeclined), ExitUsage},
		{"bad destination", New(ErrInput, "bad", ""), ExitUsage},
		{"bad key", New(ErrKey, "bad", ""), ExitUsage},
		{"bad config", New(ErrConfig, "bad", ""), ExitUsage},
		{"ssh failure", New(ErrSSH, "bad", ""), ExitFailure},
		{"remote failure", New(ErrRemote, "bad", ""), ExitFailure},
		{"unstructured error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
