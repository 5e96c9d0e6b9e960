// Command ulog-decoder turns one or more ELF firmware images carrying an
// embedded uLog dictionary into a live decoder for the terse log stream
// that firmware emits: point it at a serial port, a file, or stdin, and
// it prints one readable line per entry.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"

	"github.com/alexkar598/ulog-decoder/internal/er"
	"github.com/alexkar598/ulog-decoder/internal/frame"
	"github.com/alexkar598/ulog-decoder/internal/ulog"
	"github.com/alexkar598/ulog-decoder/internal/version"
	"github.com/alexkar598/ulog-decoder/internal/vtlog"
)

// MainErrorType groups faults raised by the top-level wiring in run, as
// opposed to faults originating in one of the internal packages.
var MainErrorType = er.NewErrorType("main.ULogDecoderError")

var ErrLoadDictionary = MainErrorType.Code("failed to load dictionary")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "An error occurred: %s\n", err.Message())
		if err.HasStack() {
			fmt.Fprintln(os.Stderr)
			for _, entry := range err.Stack() {
				fmt.Fprintln(os.Stderr, entry)
			}
		}
		os.Exit(1)
	}
}

func run() er.R {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName(), version.String())
		return nil
	}

	if cfg.LogDir != "" {
		rot, rerr := openLogRotator(cfg.LogDir)
		if rerr != nil {
			return rerr
		}
		defer rot.Close()
		vtlog.SetOutput(vtlog.MultiWriter(rot))
	}

	vtlog.Infof("ulog-decoder version %s", version.String())

	if cfg.ListPorts {
		ports, perr := listSerialPorts()
		if perr != nil {
			return perr
		}
		for _, p := range ports {
			fmt.Println("-", p)
		}
		return nil
	}

	registry := ulog.NewRegistry()
	for _, path := range cfg.Positional.MapFiles {
		dict, lerr := ulog.LoadELF(path)
		if lerr != nil {
			return ErrLoadDictionary.New(path, lerr)
		}
		if ierr := registry.Insert(dict); ierr != nil {
			return ierr
		}
		vtlog.Infof("loaded dictionary from %s (system 0x%04x, %d messages)",
			path, dict.Info.SystemID, len(dict.Messages))
	}

	source, serr := openSource(cfg)
	if serr != nil {
		return serr
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	decoder := frame.NewDecoder(source, registry, os.Stdout, os.Stderr)
	return decoder.Run()
}

// openLogRotator prepares the rotated log file under dir, creating the
// directory if needed.
func openLogRotator(dir string) (*rotator.Rotator, er.R) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, er.E(err)
	}
	logFile := filepath.Join(dir, "ulog-decoder.log")
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return nil, er.E(err)
	}
	return r, nil
}
