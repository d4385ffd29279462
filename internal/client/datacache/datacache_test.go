package datacache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingCache struct {
	calls int
}

func (c *countingCache) InvalidateAll(context.Context) { c.calls++ }

func TestRegistry_InvalidateAll(t *testing.T) {
	reg := NewRegistry()

	a := &countingCache{}
	b := &countingCache{}
	reg.Register(a)
	reg.Register(b)

	reg.InvalidateAll(context.Background())
	reg.InvalidateAll(context.Background())

	require.Equal(t, 2, a.calls)
	require.Equal(t, 2, b.calls)
}

func TestRegistry_EmptyIsSafe(t *testing.T) {
	NewRegistry().InvalidateAll(context.Background())
}
