package node

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStates(t *testing.T) {
	sel := &fakeSelector{}
	k := newKey(sel, 3, OpRead, func(*Key) {})

	assert.False(t, k.Valid())
	assert.False(t, k.Cancelled())

	// interest set before activation is kept but not pushed to the engine
	require.NoError(t, k.SetInterest(OpRead))
	assert.Equal(t, int32(0), sel.updates.Load())

	assert.True(t, k.activate())
	assert.False(t, k.activate())
	assert.True(t, k.Valid())
	assert.Equal(t, OpRead, k.Interest())

	k.Cancel()
	assert.False(t, k.Valid())
	assert.True(t, k.Cancelled())
	assert.ErrorIs(t, k.SetInterest(OpRead), ErrKeyCancelled)
}

func TestKeySetInterestMasksDirection(t *testing.T) {
	sel := &fakeSelector{}
	k, err := sel.Register(3, OpWrite, func(*Key) {})
	require.NoError(t, err)

	require.NoError(t, k.SetInterest(OpRead|OpWrite))
	assert.Equal(t, OpWrite, k.Interest())
	require.NoError(t, k.SetInterest(OpRead))
	assert.Equal(t, Op(0), k.Interest())
	assert.Equal(t, int32(2), sel.updates.Load())
}

func TestKeyCancelIsIdempotent(t *testing.T) {
	sel := &fakeSelector{}
	k, err := sel.Register(3, OpRead, func(*Key) {})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), sel.deregistered.Load())
	assert.True(t, k.Cancelled())
}

func TestKeyReadyFlags(t *testing.T) {
	sel := &fakeSelector{}
	k, err := sel.Register(3, OpRead, func(*Key) {})
	require.NoError(t, err)

	assert.False(t, k.IsReadable())
	k.setReady(OpRead)
	assert.True(t, k.IsReadable())
	assert.False(t, k.IsWritable())

	k.Cancel()
	assert.Equal(t, Op(0), k.Ready())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "none", Op(0).String())
	assert.Equal(t, "read", OpRead.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "read|write", (OpRead | OpWrite).String())
}
