//go:build linux
// +build linux

package node

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// UDPSocket is a non-blocking UDP socket driven directly through its fd.
type UDPSocket struct {
	fd     int
	family int
	local  net.Addr

	// held shared around every syscall on fd and exclusively by Close,
	// so a closed fd number is never used after the kernel hands it out again
	mu      sync.RWMutex
	closed  atomic.Bool
	onClose func()
}

var (
	_ PacketSocket  = (*UDPSocket)(nil)
	_ CloseNotifier = (*UDPSocket)(nil)
)

// ListenUDP opens a non-blocking UDP socket bound to laddr. network is "udp", "udp4" or "udp6";
// a nil laddr binds an ephemeral port on the wildcard address.
func ListenUDP(network string, laddr *net.UDPAddr) (*UDPSocket, error) {
	if laddr == nil {
		laddr = &net.UDPAddr{}
	}
	family, err := socketFamily(network, laddr.IP)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	sa, err := toSockaddr(family, laddr)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("getsockname", err)
	}

	return &UDPSocket{
		fd:     fd,
		family: family,
		local:  fromSockaddr(bound),
	}, nil
}

func (s *UDPSocket) Fd() int {
	return s.fd
}

func (s *UDPSocket) LocalAddr() net.Addr {
	return s.local
}

func (s *UDPSocket) IsOpen() bool {
	return !s.closed.Load()
}

func (s *UDPSocket) ReceiveFrom(p []byte) (int, net.Addr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return 0, nil, net.ErrClosed
	}
	n, sa, err := unix.Recvfrom(s.fd, p, 0)
	if err != nil {
		if IsTemporaryError(err) {
			return 0, nil, nil
		}
		return 0, nil, os.NewSyscallError("recvfrom", err)
	}
	from := fromSockaddr(sa)
	if from == nil {
		return 0, nil, fmt.Errorf("recvfrom: unsupported address %T", sa)
	}
	return n, from, nil
}

func (s *UDPSocket) SendTo(p []byte, to net.Addr) (int, error) {
	if s.closed.Load() {
		return 0, net.ErrClosed
	}
	addr, ok := to.(*net.UDPAddr)
	if !ok {
		return 0, &net.AddrError{Err: "not a UDP address", Addr: fmt.Sprint(to)}
	}
	sa, err := toSockaddr(s.family, addr)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return 0, net.ErrClosed
	}
	if err := unix.Sendto(s.fd, p, 0, sa); err != nil {
		if IsTemporaryError(err) || errors.Is(err, unix.ENOBUFS) {
			return 0, nil
		}
		return 0, os.NewSyscallError("sendto", err)
	}
	// a datagram is accepted whole or not at all
	return len(p), nil
}

// OnClose sets fn to run once, after the fd is closed, by whichever Close closes it.
func (s *UDPSocket) OnClose(fn func()) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

func (s *UDPSocket) Close() error {
	s.mu.Lock()
	if !s.closed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	err := os.NewSyscallError("close", unix.Close(s.fd))
	onClose := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return err
}

func socketFamily(network string, ip net.IP) (int, error) {
	switch network {
	case "udp4":
		return unix.AF_INET, nil
	case "udp6":
		return unix.AF_INET6, nil
	case "udp":
		if ip != nil && ip.To4() == nil {
			return unix.AF_INET6, nil
		}
		return unix.AF_INET, nil
	}
	return 0, net.UnknownNetworkError(network)
}

func toSockaddr(family int, addr *net.UDPAddr) (unix.Sockaddr, error) {
	switch family {
	case unix.AF_INET:
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			ip4 := addr.IP.To4()
			if ip4 == nil {
				return nil, &net.AddrError{Err: "non-IPv4 address", Addr: addr.String()}
			}
			copy(sa.Addr[:], ip4)
		}
		return sa, nil
	case unix.AF_INET6:
		sa := &unix.SockaddrInet6{Port: addr.Port}
		if addr.IP != nil {
			// IPv4 targets become v4-mapped addresses
			copy(sa.Addr[:], addr.IP.To16())
		}
		if addr.Zone != "" {
			if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa, nil
	}
	return nil, fmt.Errorf("unsupported address family %d", family)
}

func fromSockaddr(sa unix.Sockaddr) net.Addr {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{
			IP:   net.IPv4(addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3]),
			Port: addr.Port,
		}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, addr.Addr[:]) // Convert 16-byte array to net.IP
		udp := &net.UDPAddr{IP: ip, Port: addr.Port}
		if addr.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(addr.ZoneId)); err == nil {
				udp.Zone = ifi.Name
			}
		}
		return udp
	default:
		// Handle other address types or ignore
	}
	return nil
}
