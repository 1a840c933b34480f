package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"invalid config", ErrInvalidConfig, ErrorInvalid},
		{"missing rule", ErrMissingRule, ErrorInvalid},
		{"no triggers", ErrNoTriggers, ErrorInvalid},
		{"compile failed", ErrCompileFailed, ErrorInvalid},
		{"connection lost", ErrConnectionLost, ErrorTransient},
		{"publish failed", ErrPublishFailed, ErrorTransient},
		{"context cancelled", context.Canceled, ErrorTransient},
		{"unknown error", stderrors.New("something odd"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrap_Format(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Executor", "Start", "compile triggers")

	require.Error(t, err)
	assert.Equal(t, "Executor.Start: compile triggers failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, "Executor", "Start", "anything"))
	assert.NoError(t, WrapInvalid(nil, "Executor", "Start", "anything"))
	assert.NoError(t, WrapTransient(nil, "Executor", "Start", "anything"))
	assert.NoError(t, WrapFatal(nil, "Executor", "Start", "anything"))
}

func TestWrapInvalid_Classification(t *testing.T) {
	err := WrapInvalid(ErrNoTopic, "Rule", "Validate", "resolve trigger topic")

	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.True(t, stderrors.Is(err, ErrNoTopic))

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "Rule", ce.Component)
	assert.Equal(t, "Validate", ce.Operation)
}

func TestWrapTransient_Classification(t *testing.T) {
	err := WrapTransient(ErrConnectionLost, "Bus", "Publish", "publish alarm")

	assert.True(t, IsTransient(err))
	assert.False(t, IsInvalid(err))
}

func TestIsTransient_Patterns(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: connection refused")))
	assert.True(t, IsTransient(fmt.Errorf("request timeout")))
	assert.False(t, IsTransient(ErrNoTriggers))
	assert.False(t, IsTransient(nil))
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.True(t, cfg.ShouldRetry(ErrConnectionLost, 0))
	assert.False(t, cfg.ShouldRetry(ErrConnectionLost, cfg.MaxRetries))
	assert.False(t, cfg.ShouldRetry(ErrInvalidConfig, 0))
	assert.False(t, cfg.ShouldRetry(nil, 0))
}

func TestRetryConfig_ShouldRetry_SpecificErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:      3,
		RetryableErrors: []error{ErrPublishFailed},
	}

	assert.True(t, cfg.ShouldRetry(ErrPublishFailed, 0))
	assert.False(t, cfg.ShouldRetry(ErrConnectionLost, 0))
}

func TestToRetryConfig(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	rc := cfg.ToRetryConfig()
	assert.Equal(t, 4, rc.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, rc.InitialDelay)
	assert.True(t, rc.AddJitter)
}
