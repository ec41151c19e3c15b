package node

import (
	"fmt"
	"math"
	"net"
	"sync/atomic"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/zap"
)

// MaxGatherSize is the largest total payload SendBuffers will gather into one datagram buffer.
const MaxGatherSize int64 = math.MaxInt32

// ReceiveFunc observes the sender and size of a datagram accepted by Receive.
type ReceiveFunc func(from net.Addr, n int)

// UDPChannel is a datagram socket multiplexed on a Selector. Readiness is reported to its
// Handler through two keys, one per direction, both starting with no interest.
//
// All methods are safe for concurrent use and none of them block.
type UDPChannel struct {
	sock     PacketSocket
	readKey  *Key
	writeKey *Key
	handler  Handler

	closeNotified atomic.Bool
}

// NewUDPChannel takes ownership of sock and registers it with sel for both directions.
// handler must not be nil.
func NewUDPChannel(sel Selector, sock PacketSocket, handler Handler) (*UDPChannel, error) {
	ch := &UDPChannel{
		sock:    sock,
		handler: handler,
	}

	readKey, err := sel.Register(sock.Fd(), OpRead, readDispatcher{ch}.dispatch)
	if err != nil {
		return nil, fmt.Errorf("register read handler: %w", err)
	}
	writeKey, err := sel.Register(sock.Fd(), OpWrite, writeDispatcher{ch}.dispatch)
	if err != nil {
		readKey.Cancel()
		return nil, fmt.Errorf("register write handler: %w", err)
	}

	ch.readKey = readKey
	ch.writeKey = writeKey
	if n, ok := sock.(CloseNotifier); ok {
		n.OnClose(ch.release)
	}
	return ch, nil
}

func (c *UDPChannel) LocalAddr() net.Addr {
	return c.sock.LocalAddr()
}

func (c *UDPChannel) IsOpen() bool {
	return c.sock.IsOpen()
}

// Receive performs one non-blocking receive into p. ok is false, and onReceive is not
// called, when no datagram was pending.
func (c *UDPChannel) Receive(p []byte, onReceive ReceiveFunc) (n int, ok bool, err error) {
	n, from, err := c.sock.ReceiveFrom(p)
	if err != nil {
		return 0, false, err
	}
	if from == nil {
		return 0, false, nil
	}
	if onReceive != nil {
		onReceive(from, n)
	}
	return n, true, nil
}

// Send performs one non-blocking send of p. It reports true only when the socket
// accepted all of p; a refused or partial send is backpressure, not an error.
func (c *UDPChannel) Send(to net.Addr, p []byte) (bool, error) {
	n, err := c.sock.SendTo(p, to)
	if err != nil {
		return false, err
	}
	return n != 0 && n == len(p), nil
}

// SendBuffers sends the concatenation of bufs as one datagram.
func (c *UDPChannel) SendBuffers(to net.Addr, bufs net.Buffers) (bool, error) {
	return c.SendBuffersRange(to, bufs, 0, len(bufs))
}

// SendBuffersRange sends the concatenation of bufs[offset:offset+length] as one datagram.
// The socket takes a single buffer, so the selected slices are copied into one scratch buffer first.
func (c *UDPChannel) SendBuffersRange(to net.Addr, bufs net.Buffers, offset, length int) (bool, error) {
	if offset < 0 || length < 0 || offset > len(bufs) || length > len(bufs)-offset {
		return false, ErrInvalidRange
	}
	selected := bufs[offset : offset+length]

	var total int64
	for _, b := range selected {
		total += int64(len(b))
	}
	// checked before allocating
	if total > MaxGatherSize {
		return false, &SizeLimitError{Size: total, Limit: MaxGatherSize}
	}

	scratch := make([]byte, 0, int(total))
	for _, b := range selected {
		scratch = append(scratch, b...)
	}
	return c.Send(to, scratch)
}

func (c *UDPChannel) SuspendReads() {
	c.setInterest(c.readKey, 0)
}

func (c *UDPChannel) SuspendWrites() {
	c.setInterest(c.writeKey, 0)
}

func (c *UDPChannel) ResumeReads() {
	c.setInterest(c.readKey, OpRead)
}

func (c *UDPChannel) ResumeWrites() {
	c.setInterest(c.writeKey, OpWrite)
}

// setInterest flips k's interest and wakes the selector. A cancelled key makes it a no-op.
func (c *UDPChannel) setInterest(k *Key, ops Op) {
	if err := k.SetInterest(ops); err != nil {
		return
	}
	if err := k.Selector().Wakeup(); err != nil {
		log.Logger.Debug("selector wakeup failed", zap.Int("fd", k.Fd()), zap.Error(err))
	}
}

// Close closes the socket, then cancels both keys and notifies the handler, even when the
// socket close fails. The handler is notified once no matter how many callers race here.
// The socket close error, if any, is returned after the cleanup.
func (c *UDPChannel) Close() error {
	defer c.release()
	return c.sock.Close()
}

// release cancels both keys and notifies the handler if nobody has yet.
func (c *UDPChannel) release() {
	c.readKey.Cancel()
	c.writeKey.Cancel()
	if c.closeNotified.CompareAndSwap(false, true) {
		c.handler.HandleClose(c)
	}
}
