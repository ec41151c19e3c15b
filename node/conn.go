package node

import "net"

// PacketSocket is a non-blocking datagram socket.
type PacketSocket interface {
	// Fd returns the descriptor registered with the selector.
	Fd() int

	// ReceiveFrom reads one datagram into p. A nil address with a nil error means nothing was pending.
	ReceiveFrom(p []byte) (n int, from net.Addr, err error)

	// SendTo writes p as one datagram. Zero bytes with a nil error means the socket would block.
	SendTo(p []byte, to net.Addr) (n int, err error)

	LocalAddr() net.Addr
	IsOpen() bool

	// Close closes the socket. Closing twice is a no-op.
	Close() error
}

// CloseNotifier is implemented by sockets that can report being closed. A channel installs
// its cleanup here so a close made directly on the socket still cancels its keys and
// notifies the handler.
type CloseNotifier interface {
	OnClose(fn func())
}
