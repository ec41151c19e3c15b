//go:build linux
// +build linux

package node

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const (
	readEvents  = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents = unix.EPOLLOUT
)

// fdEntry is the registry's view of one fd: every live key on it and the mask epoll currently holds.
type fdEntry struct {
	keys   []*Key
	events uint32
	added  bool
}

// Registry is a wrapper around epoll. It keeps track of the keys registered per fd.
// Callers serialise access.
type Registry struct {
	epollFd int
	entries map[int]*fdEntry
}

func NewRegistry(epollFd int) *Registry {
	return &Registry{
		epollFd: epollFd,
		entries: make(map[int]*fdEntry),
	}
}

// addKey attaches k to its fd and makes sure epoll knows about the fd.
func (r *Registry) addKey(k *Key) error {
	entry, ok := r.entries[k.fd]
	if !ok {
		entry = &fdEntry{}
		r.entries[k.fd] = entry
	}
	entry.keys = append(entry.keys, k)

	if err := r.sync(k.fd, entry); err != nil {
		r.dropKey(entry, k)
		if len(entry.keys) == 0 {
			delete(r.entries, k.fd)
		}
		return err
	}
	return nil
}

// removeKey detaches k. The fd leaves epoll with its last key.
func (r *Registry) removeKey(k *Key) error {
	entry, ok := r.entries[k.fd]
	if !ok || !r.dropKey(entry, k) {
		return nil
	}

	if len(entry.keys) > 0 {
		return r.sync(k.fd, entry)
	}

	delete(r.entries, k.fd)
	if !entry.added || r.epollFd < 0 {
		return nil
	}
	err := r.Delete(k.fd)
	// the socket is normally closed before its keys are cancelled, which already removed it from epoll
	if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}

// refresh pushes the current interest of k's fd to epoll.
func (r *Registry) refresh(k *Key) error {
	entry, ok := r.entries[k.fd]
	if !ok {
		return nil
	}
	return r.sync(k.fd, entry)
}

func (r *Registry) dropKey(entry *fdEntry, k *Key) bool {
	for i, existing := range entry.keys {
		if existing == k {
			entry.keys = append(entry.keys[:i], entry.keys[i+1:]...)
			return true
		}
	}
	return false
}

// keys returns a snapshot of the live keys on fd.
func (r *Registry) keys(fd int) []*Key {
	entry, ok := r.entries[fd]
	if !ok {
		return nil
	}
	return append([]*Key(nil), entry.keys...)
}

func (r *Registry) allKeys() []*Key {
	var all []*Key
	for _, entry := range r.entries {
		all = append(all, entry.keys...)
	}
	return all
}

func (r *Registry) sync(fd int, entry *fdEntry) error {
	var events uint32
	for _, k := range entry.keys {
		if k.Cancelled() {
			continue
		}
		events |= opsToEpoll(k.Interest())
	}

	if !entry.added {
		if err := r.Add(fd, events); err != nil {
			return err
		}
		entry.added = true
		entry.events = events
		return nil
	}

	if events == entry.events {
		return nil
	}
	err := r.Mod(fd, events)
	if errors.Is(err, unix.ENOENT) {
		// a previous socket with this fd number was closed, which dropped it from epoll
		err = r.Add(fd, events)
	}
	if err != nil {
		return err
	}
	entry.events = events
	return nil
}

func (r *Registry) Add(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl add",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Mod(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl mod",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Delete(fd int) error {
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil))
}

func opsToEpoll(ops Op) uint32 {
	var events uint32
	if ops&OpRead != 0 {
		events |= readEvents
	}
	if ops&OpWrite != 0 {
		events |= writeEvents
	}
	return events
}

// epollToOps maps an epoll event mask to ready directions. Errors and hangups wake both
// directions so the handler observes the failure on its next I/O call.
func epollToOps(events uint32) Op {
	var ops Op
	if events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		ops |= OpRead
	}
	if events&unix.EPOLLOUT != 0 {
		ops |= OpWrite
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		ops |= OpRead | OpWrite
	}
	return ops
}
