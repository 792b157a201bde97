package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterThresholdFailures(t *testing.T) {
	b := NewBreaker("t1", 2, 2, time.Minute, time.Minute, nil)
	boom := errors.New("boom")

	require.NoError(t, b.Execute(func() error { return nil }))
	require.Error(t, b.Execute(func() error { return boom }))
	require.Error(t, b.Execute(func() error { return boom }))

	require.Equal(t, BreakerOpen, b.State())
	err := b.Execute(func() error { return nil })
	require.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	b := NewBreaker("t2", 1, 1, time.Minute, time.Millisecond, nil)
	boom := errors.New("boom")

	require.Error(t, b.Execute(func() error { return boom }))
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(func() error { return nil }))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("t3", 1, 1, time.Minute, time.Millisecond, nil)
	boom := errors.New("boom")

	require.Error(t, b.Execute(func() error { return boom }))
	time.Sleep(5 * time.Millisecond)
	require.Error(t, b.Execute(func() error { return boom }))
	require.Equal(t, BreakerOpen, b.State())
}
