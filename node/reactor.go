//go:build linux
// +build linux

package node

import (
	"context"
	"os"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/zap"
)

// Reactor runs a Poll on its own goroutine until a signal arrives or Stop is called.
type Reactor struct {
	poll       *Poll
	ctx        context.Context
	cancelFunc context.CancelFunc
	doneCh     chan struct{}
	signal     <-chan os.Signal
	err        error
}

func NewReactor(maxEvents int, signal <-chan os.Signal) (*Reactor, error) {
	poll, err := NewPoll(maxEvents)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reactor{
		poll:       poll,
		ctx:        ctx,
		cancelFunc: cancel,
		doneCh:     make(chan struct{}),
		signal:     signal,
	}, nil
}

// Selector is what channels register with.
func (r *Reactor) Selector() Selector {
	return r.poll
}

// Run blocks until the poll loop exits.
func (r *Reactor) Run() error {
	go func() {
		defer close(r.doneCh)
		r.err = r.poll.Run(r.ctx)
	}()
	defer log.Logger.Info("reactor closed")

	select {
	case <-r.doneCh:
	case sig := <-r.signal:
		log.Logger.Info("signal received", zap.Stringer("signal", sig))
		r.cancelFunc()
		<-r.doneCh
	}
	r.cancelFunc()
	return r.err
}

// Stop makes Run return.
func (r *Reactor) Stop() {
	r.cancelFunc()
}
