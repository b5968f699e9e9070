// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sleeper that records delays instead of waiting.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestLinear(t *testing.T) {
	d := Linear(2 * time.Second)
	assert.Equal(t, time.Duration(0), d(1))
	assert.Equal(t, 2*time.Second, d(2))
	assert.Equal(t, 4*time.Second, d(3))
	assert.Equal(t, 12*time.Second, d(7))
}

func TestDo_ImmediateSuccess(t *testing.T) {
	rec := &recorder{}
	p := Policy{MaxAttempts: 3, Delay: Linear(time.Second), Sleep: rec.sleep}

	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_SucceedsOnLastAttempt(t *testing.T) {
	rec := &recorder{}
	p := Policy{MaxAttempts: 3, Delay: Linear(2 * time.Second), Sleep: rec.sleep}

	var seen []int
	attempts, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return fmt.Errorf("attempt %d failed", attempt)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	rec := &recorder{}
	p := Policy{MaxAttempts: 4, Delay: Linear(time.Second), Sleep: rec.sleep}

	attempts, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		return fmt.Errorf("failure %d", attempt)
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.EqualError(t, err, "failure 4")
	assert.Len(t, rec.delays, 3)
}

func TestDo_PermanentStopsEarly(t *testing.T) {
	rec := &recorder{}
	p := Policy{MaxAttempts: 5, Delay: Linear(time.Second), Sleep: rec.sleep}
	base := errors.New("bad input")

	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		return Permanent(base)
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, base)
	assert.Empty(t, rec.delays)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	attempts, err := Policy{}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, Delay: Linear(time.Hour)}
	attempts, err := p.Do(ctx, func(context.Context, int) error {
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWait_ZeroDuration(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
}
