package node

import (
	"strings"
	"sync/atomic"
)

// Op is a set of readiness directions.
type Op uint32

const (
	OpRead Op = 1 << iota
	OpWrite
)

func (o Op) String() string {
	if o == 0 {
		return "none"
	}
	var parts []string
	if o&OpRead != 0 {
		parts = append(parts, "read")
	}
	if o&OpWrite != 0 {
		parts = append(parts, "write")
	}
	return strings.Join(parts, "|")
}

// key registration states
const (
	keyUnregistered int32 = iota
	keyActive
	keyCancelled
)

// DispatchFunc is invoked by the selector when a key's interest fires.
// The key passed in is the one that fired.
type DispatchFunc func(k *Key)

// Selector is the readiness engine a channel registers with.
type Selector interface {
	// Register creates a key for one direction of fd. The key starts with no interest.
	Register(fd int, op Op, dispatch DispatchFunc) (*Key, error)
	// Wakeup forces the selector to re-evaluate its registrations.
	Wakeup() error
}

// keySelector is the engine side of a Key.
type keySelector interface {
	Selector
	update(k *Key)
	deregister(k *Key)
}

// Key is one (fd, direction) registration with a Selector.
// The selector owns it; channels only flip its interest and cancel it.
type Key struct {
	fd       int
	op       Op
	sel      keySelector
	dispatch DispatchFunc

	state    atomic.Int32
	interest atomic.Uint32
	ready    atomic.Uint32
}

func newKey(sel keySelector, fd int, op Op, dispatch DispatchFunc) *Key {
	return &Key{
		fd:       fd,
		op:       op,
		sel:      sel,
		dispatch: dispatch,
	}
}

func (k *Key) Fd() int {
	return k.fd
}

// Op returns the direction this key was registered for.
func (k *Key) Op() Op {
	return k.op
}

func (k *Key) Selector() Selector {
	return k.sel
}

// Valid reports whether the key is registered and not cancelled.
func (k *Key) Valid() bool {
	return k.state.Load() == keyActive
}

func (k *Key) Cancelled() bool {
	return k.state.Load() == keyCancelled
}

func (k *Key) Interest() Op {
	return Op(k.interest.Load())
}

// SetInterest replaces the interest set. Bits outside the key's direction are dropped.
// The change reaches the engine at its next evaluation; callers wake it up.
func (k *Key) SetInterest(ops Op) error {
	if k.state.Load() == keyCancelled {
		return ErrKeyCancelled
	}
	k.interest.Store(uint32(ops & k.op))
	if k.state.Load() == keyActive {
		k.sel.update(k)
	}
	return nil
}

// Ready returns the directions signalled for the dispatch in progress.
func (k *Key) Ready() Op {
	return Op(k.ready.Load())
}

func (k *Key) IsReadable() bool {
	return k.Ready()&OpRead != 0
}

func (k *Key) IsWritable() bool {
	return k.Ready()&OpWrite != 0
}

// Cancel invalidates the key and removes it from its selector. Cancelling twice is a no-op.
func (k *Key) Cancel() {
	for {
		s := k.state.Load()
		if s == keyCancelled {
			return
		}
		if k.state.CompareAndSwap(s, keyCancelled) {
			break
		}
	}
	k.ready.Store(0)
	k.sel.deregister(k)
}

func (k *Key) activate() bool {
	return k.state.CompareAndSwap(keyUnregistered, keyActive)
}

func (k *Key) setReady(ops Op) {
	k.ready.Store(uint32(ops))
}
