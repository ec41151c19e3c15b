package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOutbox(t *testing.T) {
	o := NewOutbox()
	assert.Nil(t, o.head)
	assert.Nil(t, o.tail)
	assert.Equal(t, 0, o.Len())

	_, ok := o.Peek()
	assert.False(t, ok)
	_, ok = o.Pop()
	assert.False(t, ok)
}

func TestOutboxFIFO(t *testing.T) {
	o := NewOutbox()
	o.Push(peerAddr, []byte("a"))
	o.Push(peerAddr, []byte("b"))
	o.Push(nil, []byte("c"))
	assert.Equal(t, 3, o.Len())

	d, ok := o.Peek()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), d.Payload)
	assert.Equal(t, 3, o.Len())

	for _, want := range []string{"a", "b", "c"} {
		d, ok = o.Pop()
		assert.True(t, ok)
		assert.Equal(t, want, string(d.Payload))
	}
	assert.Equal(t, 0, o.Len())
	assert.Nil(t, o.tail)

	// usable again after draining
	o.Push(peerAddr, []byte("d"))
	d, _ = o.Peek()
	assert.Equal(t, "d", string(d.Payload))
}

func TestOutboxClear(t *testing.T) {
	o := NewOutbox()
	o.Push(peerAddr, []byte("a"))
	o.Push(peerAddr, []byte("b"))

	o.Clear()
	assert.Equal(t, 0, o.Len())
	assert.Nil(t, o.head)
	assert.Nil(t, o.tail)
}
