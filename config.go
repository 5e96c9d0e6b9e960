package main

import (
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/alexkar598/ulog-decoder/internal/er"
	"github.com/alexkar598/ulog-decoder/internal/vtlog"
)

const (
	defaultLogLevel = "info"
	defaultBaudrate = 38400
)

// ConfigErrorType groups faults raised while parsing and validating the
// command line.
var ConfigErrorType = er.NewErrorType("main.ConfigError")

var ErrAmbiguousSource = ConfigErrorType.Code("at most one source flag may be given")

// sourceArgs is the mutually-exclusive group of ways to point the decoder
// at a byte stream: stdin (the default if none are given), a file, or a
// serial port.
type sourceArgs struct {
	FromStdin bool `short:"i" long:"from-stdin" description:"Use standard input as the uLog stream source (default)"`

	FromFile string `short:"f" long:"from-file" value-name:"FILE" description:"Use FILE as the uLog stream source"`

	FromSerial string `short:"s" long:"from-serial" value-name:"PORT" optional:"yes" optional-value:"auto" description:"Use serial port PORT as the uLog stream source; omitted or \"auto\" selects the first enumerated port"`
}

// config is the full set of command line options for ulog-decoder.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	DebugLevel  string `long:"debuglevel" default:"info" description:"Logging level for the tool's own diagnostics {trace, debug, info, warn, error, critical}"`
	LogDir      string `long:"logdir" description:"Directory to additionally write a rotated log file to"`

	Source sourceArgs `group:"Source"`

	Baudrate  uint32 `short:"b" long:"baudrate" default:"38400" description:"Baud rate to use when opening a serial port"`
	ListPorts bool   `short:"l" long:"list-ports" description:"List detected serial ports and exit"`

	Positional struct {
		MapFiles []string `positional-arg-name:"map-file" description:"Path to an ELF file containing a uLog dictionary"`
	} `positional-args:"yes"`
}

var ErrNoMapFiles = ConfigErrorType.Code("at least one map file is required")

// loadConfig parses os.Args, applies the source-selection validation the
// flag library can't express on its own, and configures the ambient
// logger's level as a side effect.
func loadConfig() (*config, er.R) {
	cfg := config{DebugLevel: defaultLogLevel, Baudrate: defaultBaudrate}

	parser := flags.NewParser(&cfg, flags.Default)
	parser.Name = appName()
	parser.Usage = "[OPTIONS] MAP-FILE..."

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, er.E(err)
	}

	if cfg.ShowVersion || cfg.ListPorts {
		// --list-ports and --version both short-circuit the rest of
		// startup; skip the map-file/source checks since neither applies.
		return &cfg, nil
	}

	if len(cfg.Positional.MapFiles) == 0 {
		return nil, ErrNoMapFiles.Default()
	}

	if err := validateSource(&cfg.Source); err != nil {
		return nil, err
	}

	if err := vtlog.SetLevel(cfg.DebugLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateSource(s *sourceArgs) er.R {
	count := 0
	if s.FromStdin {
		count++
	}
	if s.FromFile != "" {
		count++
	}
	if s.FromSerial != "" {
		count++
	}
	if count > 1 {
		return ErrAmbiguousSource.Default()
	}
	return nil
}

func appName() string {
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, filepath.Ext(name))
}
