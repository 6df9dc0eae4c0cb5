package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserveTimestampChain(t *testing.T) {
	ctx := NewDisabledContext()

	delta, dod := ctx.ObserveTimestamp(100)
	require.Equal(t, int64(100), delta)
	require.Equal(t, int64(100), dod)

	delta, dod = ctx.ObserveTimestamp(110)
	require.Equal(t, int64(10), delta)
	require.Equal(t, int64(-90), dod)

	delta, dod = ctx.ObserveTimestamp(120)
	require.Equal(t, int64(10), delta)
	require.Equal(t, int64(0), dod)

	require.Equal(t, int64(120), ctx.LastTimestamp())
	require.Equal(t, int64(10), ctx.LastTimestampDelta())
}

func TestTimestampAndValueChainsAreIndependent(t *testing.T) {
	ctx := NewDisabledContext()

	ctx.ObserveTimestamp(1000)
	delta, dod := ctx.ObserveValue(50)

	require.Equal(t, int64(50), delta)
	require.Equal(t, int64(50), dod)
	require.Equal(t, int64(1000), ctx.LastTimestamp())
	require.Equal(t, int64(50), ctx.LastValue())
}

func TestDictionaryLookupAndUpdate(t *testing.T) {
	ctx := NewContext("sess-1")
	require.True(t, ctx.DictionaryEnabled())
	require.Equal(t, "sess-1", ctx.ID())

	_, ok := ctx.Lookup(100)
	require.False(t, ok)

	ctx.UpdateDictionary(100)
	code, ok := ctx.Lookup(100)
	require.True(t, ok)
	require.Equal(t, 0, code)

	v, ok := ctx.DictValue(0)
	require.True(t, ok)
	require.Equal(t, int64(100), v)

	// Re-inserting an existing value is a no-op.
	ctx.UpdateDictionary(100)
	require.Equal(t, 1, ctx.DictionarySize())
}

func TestDictionaryFIFOEviction(t *testing.T) {
	ctx := NewContext("fifo")

	for i := 0; i < DictionaryCapacity; i++ {
		ctx.UpdateDictionary(int64(i))
	}
	require.Equal(t, DictionaryCapacity, ctx.DictionarySize())

	// The next insert overwrites the oldest slot.
	ctx.UpdateDictionary(9999)

	_, ok := ctx.Lookup(0)
	require.False(t, ok)

	code, ok := ctx.Lookup(9999)
	require.True(t, ok)
	require.Equal(t, 0, code)
	require.Equal(t, DictionaryCapacity, ctx.DictionarySize())

	_, ok = ctx.Lookup(1)
	require.True(t, ok)
}

func TestDisabledContextDictionaryNoOps(t *testing.T) {
	ctx := NewDisabledContext()

	require.False(t, ctx.DictionaryEnabled())
	require.Empty(t, ctx.ID())

	ctx.UpdateDictionary(42)
	require.Equal(t, 0, ctx.DictionarySize())

	_, ok := ctx.Lookup(42)
	require.False(t, ok)

	_, ok = ctx.DictValue(0)
	require.False(t, ok)
}

func TestSnapshotRestoreIsBitIdentical(t *testing.T) {
	ctx := NewContext("snap")
	ctx.ObserveTimestamp(100)
	ctx.ObserveValue(500)
	ctx.UpdateDictionary(500)
	ctx.UpdateDictionary(501)

	reference := NewContext("snap")
	reference.ObserveTimestamp(100)
	reference.ObserveValue(500)
	reference.UpdateDictionary(500)
	reference.UpdateDictionary(501)

	snap := ctx.SnapshotState()

	// Speculative work that must fully unwind.
	ctx.ObserveTimestamp(9999)
	ctx.ObserveValue(-777)
	for i := int64(0); i < 300; i++ {
		ctx.UpdateDictionary(i)
	}
	require.False(t, ctx.Equal(reference))

	ctx.Restore(snap)
	require.True(t, ctx.Equal(reference))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	ctx := NewContext("deep")
	ctx.UpdateDictionary(1)

	snap := ctx.SnapshotState()

	// Mutations after the snapshot must not leak into it.
	ctx.UpdateDictionary(2)
	ctx.Restore(snap)

	require.Equal(t, 1, ctx.DictionarySize())
	_, ok := ctx.Lookup(2)
	require.False(t, ok)
}

func TestReset(t *testing.T) {
	ctx := NewContext("reset")
	ctx.ObserveTimestamp(100)
	ctx.ObserveValue(500)
	ctx.UpdateDictionary(500)

	ctx.Reset()

	require.Equal(t, int64(0), ctx.LastTimestamp())
	require.Equal(t, int64(0), ctx.LastTimestampDelta())
	require.Equal(t, int64(0), ctx.LastValue())
	require.Equal(t, int64(0), ctx.LastValueDelta())
	require.Equal(t, 0, ctx.DictionarySize())
	require.True(t, ctx.DictionaryEnabled())
}

func TestEqualDetectsEveryField(t *testing.T) {
	base := func() *Context {
		c := NewContext("eq")
		c.ObserveTimestamp(10)
		c.ObserveValue(20)
		c.UpdateDictionary(20)
		return c
	}

	mutations := []func(*Context){
		func(c *Context) { c.ObserveTimestamp(11) },
		func(c *Context) { c.ObserveValue(21) },
		func(c *Context) { c.UpdateDictionary(99) },
	}

	for i, mutate := range mutations {
		a, b := base(), base()
		require.True(t, a.Equal(b))

		mutate(b)
		require.False(t, a.Equal(b), fmt.Sprintf("mutation %d", i))
	}
}
