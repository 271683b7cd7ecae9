package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DoublesUpToMax(t *testing.T) {
	b := NewBackoff(5*time.Second, 20*time.Second)
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 10*time.Second, b.Next())
	assert.Equal(t, 20*time.Second, b.Next())
	assert.Equal(t, 20*time.Second, b.Next(), "stays at max")
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	assert.Equal(t, 5*time.Second, b.Next())
}

func TestPacer_Wait(t *testing.T) {
	p := Pacer{Base: time.Millisecond}
	start := time.Now()
	assert.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestPacer_ZeroIsImmediate(t *testing.T) {
	assert.NoError(t, Pacer{}.Wait(context.Background()))
}

func TestPacer_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pacer{Base: time.Hour}.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
