//go:build linux
// +build linux

package node

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// https://copyconstruct.medium.com/the-method-to-epolls-madness-d9d2d6378642

// Poll is a level triggered epoll selector. Keys are dispatched inline on the goroutine running Run.
type Poll struct {
	*Registry
	efd       int // eventfd used for wakeups
	maxEvents int

	mu      sync.Mutex
	pending map[*Key]struct{} // keys whose interest changed since the last wait
	started bool

	closed   atomic.Bool
	stopping atomic.Bool
	done     chan struct{}
}

var _ Selector = (*Poll)(nil)

func NewPoll(maxEvents int) (*Poll, error) {
	if maxEvents <= 0 {
		maxEvents = MaxEvents
	}

	// Create a new epoll instance
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create epoll", zap.Error(err))
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	r := NewRegistry(epfd)

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create eventfd", zap.Error(err))
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}

	// Register the eventfd to epoll for read events
	if err := r.Add(efd, readEvents); err != nil {
		log.Logger.Error("Failed to add eventfd to epoll", zap.Error(err))
		_ = unix.Close(efd)
		_ = unix.Close(epfd)
		return nil, err
	}

	return &Poll{
		Registry:  r,
		efd:       efd,
		maxEvents: maxEvents,
		pending:   make(map[*Key]struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Register adds a key for one direction of fd with empty interest.
func (p *Poll) Register(fd int, op Op, dispatch DispatchFunc) (*Key, error) {
	k := newKey(p, fd, op, dispatch)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil, ErrPollClosed
	}
	if err := p.addKey(k); err != nil {
		log.Logger.Error("register error", zap.Int("fd", fd), zap.Stringer("op", op), zap.Error(err))
		return nil, err
	}
	k.activate()
	return k, nil
}

// Wakeup interrupts a blocked wait so pending interest changes are applied.
func (p *Poll) Wakeup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.efd < 0 {
		return ErrPollClosed
	}
	return p.sendSignal()
}

// Stop asks Run to return after the current batch of events.
func (p *Poll) Stop() error {
	p.stopping.Store(true)
	return p.Wakeup()
}

func (p *Poll) update(k *Key) {
	p.mu.Lock()
	p.pending[k] = struct{}{}
	p.mu.Unlock()
}

func (p *Poll) deregister(k *Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, k)
	if err := p.removeKey(k); err != nil {
		log.Logger.Debug("Failed to remove key from epoll", zap.Int("fd", k.fd), zap.Error(err))
	}
}

// Run waits for readiness and dispatches keys until ctx is done or Stop is called.
// The poll is closed when Run returns.
func (p *Poll) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.closed.Load() || p.started {
		p.mu.Unlock()
		return ErrPollClosed
	}
	p.started = true
	p.mu.Unlock()

	defer close(p.done)

	// handle cleanup if necessary
	defer p.CloseGracefully()

	stop := context.AfterFunc(ctx, func() {
		_ = p.Stop()
	})
	defer stop()

	events := make([]unix.EpollEvent, p.maxEvents)
	for {
		p.applyPending()

		// level triggered, block until something is ready or we are woken up
		n, err := unix.EpollWait(p.epollFd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Logger.Error("epoll wait error", zap.Error(err))
			return os.NewSyscallError("epoll_wait", err)
		}

		for i := 0; i < n; i++ {
			ev := &events[i]
			if err := p.processEvent(int(ev.Fd), ev); err == ErrSignalStopped {
				return nil
			}
		}
	}
}

func (p *Poll) applyPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.pending {
		delete(p.pending, k)
		if !k.Valid() {
			continue
		}
		if err := p.refresh(k); err != nil {
			log.Logger.Warn("Failed to apply interest", zap.Int("fd", k.fd), zap.Stringer("interest", k.Interest()), zap.Error(err))
		}
	}
}

func (p *Poll) processEvent(fd int, ev *unix.EpollEvent) error {
	if fd == p.efd {
		// the eventfd fired, somebody wants the loop to look at its registrations again
		return p.handleSignal()
	}

	ready := epollToOps(ev.Events)

	p.mu.Lock()
	keys := p.keys(fd)
	p.mu.Unlock()

	// dispatch outside the lock, a key may be cancelled while its dispatcher runs
	for _, k := range keys {
		fired := ready & k.Interest()
		if fired == 0 || !k.Valid() {
			continue
		}
		k.setReady(fired)
		k.dispatch(k)
		k.setReady(0)
	}
	return nil
}

// handleSignal drains the eventfd
func (p *Poll) handleSignal() error {
	var buf uint64
	_, err := unix.Read(p.efd, (*(*[8]byte)(unsafe.Pointer(&buf)))[:])
	if err != nil && err != unix.EAGAIN {
		log.Logger.Error("Failed to read from event fd", zap.Error(err))
	}
	if p.stopping.Load() {
		return ErrSignalStopped
	}
	return nil
}

// sendSignal bumps the eventfd counter. Callers hold p.mu.
func (p *Poll) sendSignal() error {
	sig := uint64(1)
	_, err := unix.Write(p.efd, (*(*[8]byte)(unsafe.Pointer(&sig)))[:])
	if err == unix.EAGAIN {
		// counter saturated, the loop is already due to wake
		return nil
	}
	if err != nil {
		log.Logger.Error("Failed to write to event fd", zap.Error(err))
		return os.NewSyscallError("write eventfd", err)
	}
	return nil
}

// Close stops a running loop and waits for it, or releases the poll directly if Run never started.
// It must not be called from a dispatcher or handler, since those run on the loop it waits for;
// call Stop there instead.
func (p *Poll) Close() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if started {
		_ = p.Stop()
		<-p.done
		return nil
	}
	return p.CloseGracefully()
}

// CloseGracefully order: keys, eventfd, epoll
// prevent the fd leak
func (p *Poll) CloseGracefully() error {
	p.mu.Lock()
	if !p.closed.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return nil
	}
	keys := p.allKeys()
	p.mu.Unlock()

	// the sockets belong to their channels, only the registrations go
	for _, k := range keys {
		k.Cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.efd >= 0 {
		if delErr := p.Delete(p.efd); delErr != nil {
			log.Logger.Debug("Failed to delete eventfd from epoll", zap.Error(delErr))
		}
		err = multierr.Append(err, os.NewSyscallError("close eventfd", unix.Close(p.efd)))
		p.efd = -1
	}
	if p.epollFd >= 0 {
		err = multierr.Append(err, os.NewSyscallError("close epoll", unix.Close(p.epollFd)))
		p.epollFd = -1
	}
	if err != nil {
		log.Logger.Info("Failed to close poll", zap.Error(err))
	}
	return err
}
