package node

import (
	"net"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/zap"
)

// Handler receives readiness and close notifications for a UDPChannel.
// Readable and writable callbacks run on the poll goroutine; a returned error is logged, never propagated.
type Handler interface {
	HandleReadable(ch *UDPChannel) error
	HandleWritable(ch *UDPChannel) error
	// HandleClose is called exactly once, by whichever Close wins.
	HandleClose(ch *UDPChannel)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Readable func(ch *UDPChannel) error
	Writable func(ch *UDPChannel) error
	Close    func(ch *UDPChannel)
}

func (h HandlerFuncs) HandleReadable(ch *UDPChannel) error {
	if h.Readable == nil {
		return nil
	}
	return h.Readable(ch)
}

func (h HandlerFuncs) HandleWritable(ch *UDPChannel) error {
	if h.Writable == nil {
		return nil
	}
	return h.Writable(ch)
}

func (h HandlerFuncs) HandleClose(ch *UDPChannel) {
	if h.Close != nil {
		h.Close(ch)
	}
}

// maxReadsPerEvent bounds how many datagrams one readable event drains.
const maxReadsPerEvent = 64

// EchoHandler sends every datagram back to its sender. Replies the socket refuses are queued;
// while the queue is non-empty reads are suspended and writes resumed.
type EchoHandler struct {
	bufSize int
	outbox  *Outbox
}

func NewEchoHandler(bufSize int) *EchoHandler {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	return &EchoHandler{
		bufSize: bufSize,
		outbox:  NewOutbox(),
	}
}

func (h *EchoHandler) HandleReadable(ch *UDPChannel) error {
	buf := make([]byte, h.bufSize)
	for i := 0; i < maxReadsPerEvent; i++ {
		var from net.Addr
		n, ok, err := ch.Receive(buf, func(addr net.Addr, _ int) {
			from = addr
		})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		log.Logger.Debug("read datagram", zap.Stringer("from", from), zap.Int("bytes", n))
		payload := append([]byte(nil), buf[:n]...)

		if h.outbox.Len() > 0 {
			// keep replies in arrival order
			h.outbox.Push(from, payload)
			continue
		}

		sent, err := ch.Send(from, payload)
		if err != nil {
			return err
		}
		if !sent {
			h.outbox.Push(from, payload)
			ch.SuspendReads()
			ch.ResumeWrites()
			return nil
		}
	}
	return nil
}

func (h *EchoHandler) HandleWritable(ch *UDPChannel) error {
	for {
		d, ok := h.outbox.Peek()
		if !ok {
			break
		}
		sent, err := ch.Send(d.To, d.Payload)
		if err != nil {
			// undeliverable, drop it
			h.outbox.Pop()
			return err
		}
		if !sent {
			return nil
		}
		h.outbox.Pop()
	}

	ch.SuspendWrites()
	ch.ResumeReads()
	return nil
}

func (h *EchoHandler) HandleClose(ch *UDPChannel) {
	log.Logger.Info("channel closed", zap.Stringer("local", ch.LocalAddr()), zap.Int("dropped", h.outbox.Len()))
	h.outbox.Clear()
}
