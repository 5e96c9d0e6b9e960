package main

import (
	"bufio"
	"io"
	"os"
	"sort"

	"go.bug.st/serial"

	"github.com/alexkar598/ulog-decoder/internal/er"
)

// SourceErrorType groups faults raised while resolving the configured
// source flag into an actual byte stream.
var SourceErrorType = er.NewErrorType("main.SourceError")

var (
	ErrFileSourceOpen   = SourceErrorType.Code("failed to open source file")
	ErrSerialSourceOpen = SourceErrorType.Code("failed to open serial port")
	ErrNoSerialSource   = SourceErrorType.Code("no serial ports were found")
)

// noReadTimeout tells go.bug.st/serial to block indefinitely on Read; the
// frame decoder's timeout handling exists for sources that do return
// timeouts, not this one, but stays correct either way.
const noReadTimeout = -1

// openSource resolves the CLI's source selection into a single byte
// stream reader. loadConfig has already rejected more than one source
// flag being set; none of them set means stdin.
func openSource(cfg *config) (io.Reader, er.R) {
	switch {
	case cfg.Source.FromFile != "":
		f, err := os.Open(cfg.Source.FromFile)
		if err != nil {
			return nil, ErrFileSourceOpen.New(cfg.Source.FromFile, er.E(err))
		}
		return bufio.NewReader(f), nil

	case cfg.Source.FromSerial != "":
		port := cfg.Source.FromSerial
		if port == "auto" {
			ports, err := listSerialPorts()
			if err != nil {
				return nil, err
			}
			if len(ports) == 0 {
				return nil, ErrNoSerialSource.Default()
			}
			port = ports[0]
		}
		mode := &serial.Mode{BaudRate: int(cfg.Baudrate)}
		p, err := serial.Open(port, mode)
		if err != nil {
			return nil, ErrSerialSourceOpen.New(port, er.E(err))
		}
		if err := p.SetReadTimeout(noReadTimeout); err != nil {
			return nil, ErrSerialSourceOpen.New(port, er.E(err))
		}
		return bufio.NewReader(p), nil

	default:
		return bufio.NewReader(os.Stdin), nil
	}
}

// listSerialPorts returns the enumerated serial port device names, sorted.
// go.bug.st/serial's basic enumeration (unlike the serialport crate this
// was ported from) doesn't report a per-port type, so there's no "unknown
// type" bucket to push to the end; a plain lexical sort is the closest
// equivalent and gives a stable, deterministic "auto" pick.
func listSerialPorts() ([]string, er.R) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, er.E(err)
	}
	sort.Strings(ports)
	return ports, nil
}
