//go:build linux
// +build linux

package node

import (
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/zap"
)

// Server binds one UDP socket and serves it with a Handler on a Reactor.
type Server struct {
	config  Config
	handler Handler

	mu      sync.Mutex
	reactor *Reactor
	channel *UDPChannel
	ready   chan struct{}
}

func NewServer(config Config) *Server {
	return &Server{
		config: config,
		ready:  make(chan struct{}),
	}
}

// SetHandler replaces the default EchoHandler. Call it before Run.
func (s *Server) SetHandler(handler Handler) {
	s.handler = handler
}

// Run serves until SIGINT, SIGTERM or SIGQUIT.
func (s *Server) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	return s.Serve(sigCh)
}

// Serve serves until a value arrives on stop or Stop is called.
func (s *Server) Serve(stop <-chan os.Signal) error {
	laddr, err := s.config.Validate()
	if err != nil {
		return err
	}

	sock, err := ListenUDP(s.config.Network, laddr)
	if err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return err
	}

	reactor, err := NewReactor(s.config.MaxEvents, stop)
	if err != nil {
		_ = sock.Close()
		return err
	}

	if s.handler == nil {
		s.handler = NewEchoHandler(s.config.ReadBufferSize)
	}

	ch, err := NewUDPChannel(reactor.Selector(), sock, s.handler)
	if err != nil {
		_ = sock.Close()
		_ = reactor.poll.Close()
		return err
	}
	ch.ResumeReads()

	s.mu.Lock()
	s.reactor = reactor
	s.channel = ch
	s.mu.Unlock()
	close(s.ready)

	log.Logger.Info("listening on", zap.Stringer("addr", ch.LocalAddr()))
	// blocking
	runErr := reactor.Run()
	log.Logger.Info("shutting down server")

	if err := ch.Close(); err != nil {
		log.Logger.Warn("close channel", zap.Error(err))
	}
	return runErr
}

// Ready is closed once the socket is bound and registered.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// LocalAddr is the bound address, nil before Ready.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return nil
	}
	return s.channel.LocalAddr()
}

func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactor != nil {
		s.reactor.Stop()
	}
}
