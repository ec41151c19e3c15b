//go:build linux
// +build linux

package node

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}

func listenLoopback(t *testing.T) *UDPSocket {
	t.Helper()
	sock, err := ListenUDP("udp4", loopback)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })
	return sock
}

func dialLoopback(t *testing.T, to net.Addr) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp4", nil, to.(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestListenUDPBindsEphemeralPort(t *testing.T) {
	sock := listenLoopback(t)

	addr, ok := sock.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)
	assert.NotZero(t, addr.Port)
	assert.True(t, addr.IP.Equal(net.IPv4(127, 0, 0, 1)))
	assert.True(t, sock.IsOpen())
	assert.Greater(t, sock.Fd(), 0)
}

func TestListenUDPRejectsUnknownNetwork(t *testing.T) {
	_, err := ListenUDP("tcp", nil)
	assert.Error(t, err)
}

func TestUDPSocketReceiveWouldBlock(t *testing.T) {
	sock := listenLoopback(t)

	n, from, err := sock.ReceiveFrom(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, from)
}

func TestUDPSocketRoundTrip(t *testing.T) {
	sock := listenLoopback(t)
	client := dialLoopback(t, sock.LocalAddr())

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	var n int
	var from net.Addr
	require.Eventually(t, func() bool {
		n, from, err = sock.ReceiveFrom(buf)
		return err != nil || from != nil
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	assert.Equal(t, client.LocalAddr().(*net.UDPAddr).Port, from.(*net.UDPAddr).Port)

	sent, err := sock.SendTo([]byte("pong"), from)
	require.NoError(t, err)
	assert.Equal(t, 4, sent)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestUDPSocketSendToRejectsNonUDPAddress(t *testing.T) {
	sock := listenLoopback(t)

	_, err := sock.SendTo([]byte("x"), &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})
	assert.Error(t, err)
}

func TestUDPSocketCloseIsIdempotent(t *testing.T) {
	sock, err := ListenUDP("udp4", loopback)
	require.NoError(t, err)

	require.NoError(t, sock.Close())
	assert.NoError(t, sock.Close())
	assert.False(t, sock.IsOpen())

	_, _, err = sock.ReceiveFrom(make([]byte, 4))
	assert.ErrorIs(t, err, net.ErrClosed)
	_, err = sock.SendTo([]byte("x"), loopback)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestUDPSocketOnCloseRunsOnce(t *testing.T) {
	sock, err := ListenUDP("udp4", loopback)
	require.NoError(t, err)

	calls := 0
	sock.OnClose(func() {
		calls++
		assert.False(t, sock.IsOpen())
	})
	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())
	assert.Equal(t, 1, calls)
}

func TestUDPSocketConcurrentIOAndClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		sock, err := ListenUDP("udp4", loopback)
		require.NoError(t, err)
		target := sock.LocalAddr()

		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if _, err := sock.SendTo([]byte("x"), target); err != nil {
						errs <- err
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				buf := make([]byte, 8)
				for j := 0; j < 50; j++ {
					if _, _, err := sock.ReceiveFrom(buf); err != nil {
						errs <- err
						return
					}
				}
			}()
		}
		require.NoError(t, sock.Close())
		wg.Wait()
		close(errs)

		// once closed, I/O only ever reports the close
		for err := range errs {
			assert.ErrorIs(t, err, net.ErrClosed)
		}
	}
}
