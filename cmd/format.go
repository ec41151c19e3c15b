package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	UDPCliHisFileEnv     = "UDPCLI_HISTFILE"
	UDPCliHisFileDefault = ".udpcli_history"
)

type OutputMode uint8

const (
	OutputStandard OutputMode = iota
	OutputRaw
)

type lineKind uint8

const (
	lineEmpty lineKind = iota
	lineQuit
	lineClear
	lineSend
)

// parseLine classifies one line of user input. Only lineSend carries a payload.
func parseLine(line string) (lineKind, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return lineEmpty, ""
	case strings.EqualFold(trimmed, "quit"), strings.EqualFold(trimmed, "exit"):
		return lineQuit, ""
	case strings.EqualFold(trimmed, "clear"):
		return lineClear, ""
	}
	return lineSend, line
}

// formatReply renders one received datagram for the terminal.
func formatReply(from net.Addr, payload []byte, mode OutputMode) string {
	if mode == OutputRaw {
		return string(payload) + "\n"
	}
	return fmt.Sprintf("(%d bytes from %s) %s\n", len(payload), from, strconv.Quote(string(payload)))
}

func refreshPrompt(target *net.UDPAddr) string {
	return fmt.Sprintf("udp://%s> ", target)
}

func getDotfilePath(envOverride, dotFilename string) string {
	path := os.Getenv(envOverride)
	if path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
