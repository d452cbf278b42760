package util

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func fastRetries(t *testing.T) {
	t.Helper()
	orig := RetryBaseDelay
	RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { RetryBaseDelay = orig })
}

func TestTransient(t *testing.T) {
	assert.False(t, Transient(nil))
	assert.False(t, Transient(context.Canceled))
	assert.False(t, Transient(errors.New("boom")))
	assert.False(t, Transient(&StatusError{Code: http.StatusBadRequest}))
	assert.True(t, Transient(&StatusError{Code: http.StatusTooManyRequests}))
	assert.True(t, Transient(&StatusError{Code: http.StatusBadGateway}))
	assert.True(t, Transient(timeoutErr{}))
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	fastRetries(t)
	calls := 0
	err := Retry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Code: http.StatusServiceUnavailable}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	fastRetries(t)
	calls := 0
	err := Retry(context.Background(), 5, func(ctx context.Context) error {
		calls++
		return &StatusError{Code: http.StatusNotFound}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	fastRetries(t)
	calls := 0
	err := Retry(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return &StatusError{Code: http.StatusInternalServerError}
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "unexpected status 502 Bad Gateway", (&StatusError{Code: 502}).Error())
	assert.Equal(t, "unexpected status 400 Bad Request: nope", (&StatusError{Code: 400, Body: "nope"}).Error())
}
