package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fzft/go-nio-udp/cmd"
	"github.com/fzft/go-nio-udp/log"
	"github.com/fzft/go-nio-udp/node"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "go-nio-udp",
		Short:        "readiness driven UDP echo server and client",
		Version:      VersionString(),
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand(), cliCommand(), versionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	config := node.DefaultConfig()
	command := &cobra.Command{
		Use:   "serve",
		Short: "echo every datagram back to its sender",
		RunE: func(c *cobra.Command, args []string) error {
			if err := log.InitLogger(config.LogLevel, config.Development); err != nil {
				return err
			}
			defer log.Logger.Sync()

			log.Logger.Info("starting server", zap.String("version", VersionString()), zap.String("addr", config.Addr))
			return node.NewServer(config).Run()
		},
	}
	flags := command.Flags()
	flags.StringVarP(&config.Addr, "addr", "a", config.Addr, "host:port to bind")
	flags.StringVarP(&config.Network, "network", "n", config.Network, "udp, udp4 or udp6")
	flags.IntVar(&config.MaxEvents, "max-events", config.MaxEvents, "epoll events fetched per wait")
	flags.IntVar(&config.ReadBufferSize, "read-buffer", config.ReadBufferSize, "largest datagram read in one call")
	flags.StringVarP(&config.LogLevel, "log-level", "l", config.LogLevel, "debug, info, warn or error")
	flags.BoolVarP(&config.Development, "dev", "d", config.Development, "development logging")
	return command
}

func cliCommand() *cobra.Command {
	config := cmd.DefaultCliConfig()
	var raw bool
	var logLevel string
	command := &cobra.Command{
		Use:   "cli",
		Short: "send lines as datagrams and print the replies",
		RunE: func(c *cobra.Command, args []string) error {
			if err := log.InitLogger(logLevel, false); err != nil {
				return err
			}
			defer log.Logger.Sync()

			if raw {
				config.Output = cmd.OutputRaw
			}
			cli, err := cmd.NewUDPCli(config)
			if err != nil {
				return err
			}
			return cli.Run(context.Background())
		},
	}
	flags := command.Flags()
	flags.StringVarP(&config.Addr, "addr", "a", config.Addr, "server host:port")
	flags.StringVarP(&config.Network, "network", "n", config.Network, "udp, udp4 or udp6")
	flags.StringVarP(&config.Prefix, "prefix", "p", "", "prepended to every datagram")
	flags.BoolVar(&raw, "raw", false, "print replies without decoration")
	flags.StringVarP(&logLevel, "log-level", "l", "warn", "debug, info, warn or error")
	return command
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(c *cobra.Command, args []string) {
			fmt.Println(VersionString())
			fmt.Printf("git_sha1=%s git_dirty=%s build=%s\n", GitSHA1(), GitDirty(), BuildIdRaw())
		},
	}
}
