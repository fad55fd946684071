package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestPer(t *testing.T) {
	assert.Equal(t, rate.Every(100*time.Millisecond), Per(10, 1*time.Second))
	assert.Equal(t, rate.Every(2*time.Second), Per(1, 2*time.Second))
}

func TestMultiLimit(t *testing.T) {
	slow := rate.NewLimiter(Per(1, 10*time.Second), 1)
	fast := rate.NewLimiter(Per(100, 1*time.Second), 100)

	m := Multi(fast, slow)
	assert.Equal(t, slow.Limit(), m.Limit())
}

func TestMultiWait(t *testing.T) {
	l := Multi(
		rate.NewLimiter(Per(1, 200*time.Millisecond), 1),
		rate.NewLimiter(Per(100, 1*time.Second), 100),
	)

	// first event passes on the initial token, the second has to wait
	require.NoError(t, l.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestMultiWaitCanceled(t *testing.T) {
	l := Multi(rate.NewLimiter(Per(1, 1*time.Hour), 1))
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}
