package node

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// fakeSelector hands out active keys and lets tests fire them by hand.
type fakeSelector struct {
	mu   sync.Mutex
	keys []*Key

	registerErr  error
	wakeups      atomic.Int32
	updates      atomic.Int32
	deregistered atomic.Int32
}

func (s *fakeSelector) Register(fd int, op Op, dispatch DispatchFunc) (*Key, error) {
	if s.registerErr != nil && op == OpWrite {
		return nil, s.registerErr
	}
	k := newKey(s, fd, op, dispatch)
	k.activate()
	s.mu.Lock()
	s.keys = append(s.keys, k)
	s.mu.Unlock()
	return k, nil
}

func (s *fakeSelector) Wakeup() error {
	s.wakeups.Add(1)
	return nil
}

func (s *fakeSelector) update(k *Key) {
	s.updates.Add(1)
}

func (s *fakeSelector) deregister(k *Key) {
	s.deregistered.Add(1)
}

// fire mimics one readiness event on k.
func (s *fakeSelector) fire(k *Key, ready Op) {
	k.setReady(ready)
	k.dispatch(k)
	k.setReady(0)
}

type fakeDatagram struct {
	addr    net.Addr
	payload []byte
}

// fakeSocket is an in-memory PacketSocket. capacity bounds the datagram size SendTo accepts.
type fakeSocket struct {
	mu         sync.Mutex
	inbox      []fakeDatagram
	sent       []fakeDatagram
	capacity   int
	closed     bool
	closeErr   error
	closeCalls int
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{}
}

func (s *fakeSocket) Fd() int {
	return 42
}

func (s *fakeSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
}

func (s *fakeSocket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *fakeSocket) deliver(from net.Addr, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, fakeDatagram{addr: from, payload: payload})
}

func (s *fakeSocket) ReceiveFrom(p []byte) (int, net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, net.ErrClosed
	}
	if len(s.inbox) == 0 {
		return 0, nil, nil
	}
	d := s.inbox[0]
	s.inbox = s.inbox[1:]
	return copy(p, d.payload), d.addr, nil
}

func (s *fakeSocket) SendTo(p []byte, to net.Addr) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, net.ErrClosed
	}
	if s.capacity > 0 && len(p) > s.capacity {
		return 0, nil
	}
	s.sent = append(s.sent, fakeDatagram{addr: to, payload: append([]byte(nil), p...)})
	return len(p), nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closeErr
}

func (s *fakeSocket) sentDatagrams() []fakeDatagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fakeDatagram(nil), s.sent...)
}

// recordingHandler counts callbacks and can be told to fail.
type recordingHandler struct {
	readable atomic.Int32
	writable atomic.Int32
	closed   atomic.Int32

	onReadable func(ch *UDPChannel) error
	onWritable func(ch *UDPChannel) error
}

func (h *recordingHandler) HandleReadable(ch *UDPChannel) error {
	h.readable.Add(1)
	if h.onReadable != nil {
		return h.onReadable(ch)
	}
	return nil
}

func (h *recordingHandler) HandleWritable(ch *UDPChannel) error {
	h.writable.Add(1)
	if h.onWritable != nil {
		return h.onWritable(ch)
	}
	return nil
}

func (h *recordingHandler) HandleClose(ch *UDPChannel) {
	h.closed.Add(1)
}

var errBoom = errors.New("boom")
