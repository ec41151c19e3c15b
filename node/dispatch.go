package node

import (
	"fmt"

	"github.com/fzft/go-nio-udp/log"
	"go.uber.org/zap"
)

// readDispatcher forwards readable events on the channel's read key to the handler.
type readDispatcher struct {
	ch *UDPChannel
}

func (d readDispatcher) dispatch(k *Key) {
	ch := d.ch
	if !ch.sock.IsOpen() {
		// closed underneath us by a socket that cannot report it, run the regular close path
		if err := ch.Close(); err != nil {
			log.Logger.Debug("close after external socket close failed", zap.Int("fd", k.Fd()), zap.Error(err))
		}
		return
	}
	if !k.Valid() || !k.IsReadable() {
		return
	}
	invokeHandler("read", ch, k, ch.handler.HandleReadable)
}

// writeDispatcher forwards writable events on the channel's write key to the handler.
type writeDispatcher struct {
	ch *UDPChannel
}

func (d writeDispatcher) dispatch(k *Key) {
	if !k.Valid() || !k.IsWritable() {
		return
	}
	invokeHandler("write", d.ch, k, d.ch.handler.HandleWritable)
}

// invokeHandler runs fn and swallows whatever it returns or panics with.
func invokeHandler(kind string, ch *UDPChannel, k *Key, fn func(*UDPChannel) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error(kind+" handler failed",
				zap.Int("fd", k.Fd()),
				zap.Error(fmt.Errorf("panic: %v", r)),
				zap.Stack("stack"))
		}
	}()
	if err := fn(ch); err != nil {
		log.Logger.Error(kind+" handler failed", zap.Int("fd", k.Fd()), zap.Error(err))
	}
}
