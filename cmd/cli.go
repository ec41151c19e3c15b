//go:build linux
// +build linux

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/fzft/go-nio-udp/deps/linenoise"
	"github.com/fzft/go-nio-udp/log"
	"github.com/fzft/go-nio-udp/node"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CliConfig struct {
	Network string
	Addr    string
	// Prefix is sent ahead of every line as a separate buffer.
	Prefix string
	Output OutputMode
}

func DefaultCliConfig() *CliConfig {
	output := OutputRaw
	if isatty.IsTerminal(os.Stdout.Fd()) {
		output = OutputStandard
	}
	return &CliConfig{
		Network: node.DefaultNetwork,
		Addr:    node.DefaultAddr,
		Output:  output,
	}
}

// UDPCli is an interactive client: each line typed is sent as one datagram and
// every datagram that comes back is printed.
type UDPCli struct {
	config *CliConfig
	target *net.UDPAddr

	mu  sync.Mutex
	out io.Writer
}

func NewUDPCli(config *CliConfig) (*UDPCli, error) {
	target, err := net.ResolveUDPAddr(config.Network, config.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", config.Addr, err)
	}
	return &UDPCli{
		config: config,
		target: target,
		out:    os.Stdout,
	}, nil
}

func (cli *UDPCli) Run(ctx context.Context) error {
	network := "udp4"
	if cli.target.IP != nil && cli.target.IP.To4() == nil {
		network = "udp6"
	}
	sock, err := node.ListenUDP(network, nil)
	if err != nil {
		return err
	}

	poll, err := node.NewPoll(0)
	if err != nil {
		_ = sock.Close()
		return err
	}

	ch, err := node.NewUDPChannel(poll, sock, node.HandlerFuncs{Readable: cli.printReplies})
	if err != nil {
		_ = sock.Close()
		_ = poll.Close()
		return err
	}
	defer ch.Close()
	ch.ResumeReads()

	line := linenoise.New()
	defer line.Close()

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poll.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return awaitInput(ctx, func() error {
			return cli.repl(line, ch)
		})
	})
	return g.Wait()
}

func (cli *UDPCli) repl(line *linenoise.LineNoise, ch *node.UDPChannel) error {

	var historyFile string
	if isatty.IsTerminal(os.Stdin.Fd()) {
		historyFile = getDotfilePath(UDPCliHisFileEnv, UDPCliHisFileDefault)
		if historyFile != "" {
			if err := line.HistoryLoad(historyFile); err != nil {
				log.Logger.Warn("load history", zap.String("file", historyFile), zap.Error(err))
			}
		}
	}

	prompt := refreshPrompt(cli.target)
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}

		kind, payload := parseLine(input)
		switch kind {
		case lineEmpty:
			continue
		case lineQuit:
			return nil
		case lineClear:
			_ = line.ClearScreen()
			continue
		}

		line.AppendHistory(input)
		if historyFile != "" {
			_ = line.HistorySave(historyFile)
		}

		sent, err := ch.SendBuffers(cli.target, net.Buffers{[]byte(cli.config.Prefix), []byte(payload)})
		if err != nil {
			cli.printf("(error) %v\n", err)
			continue
		}
		if !sent {
			cli.printf("(dropped) socket not ready, try again\n")
		}
	}
}

// printReplies drains the socket. It runs on the poll goroutine.
func (cli *UDPCli) printReplies(ch *node.UDPChannel) error {
	buf := make([]byte, node.DefaultReadBufferSize)
	for {
		var from net.Addr
		n, ok, err := ch.Receive(buf, func(addr net.Addr, _ int) {
			from = addr
		})
		if err != nil || !ok {
			return err
		}
		cli.printf("%s", formatReply(from, buf[:n], cli.config.Output))
	}
}

func (cli *UDPCli) printf(format string, args ...any) {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	fmt.Fprintf(cli.out, format, args...)
}
