// Package frame is the Frame Decoder Glue: it owns the main blocking read
// loop over a source byte stream, de-frames each entry, resolves it
// against the System Registry, renders it, and prints one line per
// entry. A per-frame failure is diagnosed to the error stream and does
// not stop the loop; only a clean EOF (or an unrecoverable read fault)
// ends it.
package frame

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"

	"github.com/alexkar598/ulog-decoder/internal/er"
	"github.com/alexkar598/ulog-decoder/internal/rzcobs"
	"github.com/alexkar598/ulog-decoder/internal/ulog"
	"github.com/alexkar598/ulog-decoder/internal/vtlog"
)

// ErrorType groups the per-frame faults a single entry can raise. None of
// these abort the decode loop; the caller reports them and reads the next
// frame.
var ErrorType = er.NewErrorType("frame.DecodeError")

var (
	ErrEntryRead      = ErrorType.Code("failed to read entry")
	ErrRzcobs         = ErrorType.Code("failed to decode rzcobs frame")
	ErrSystemIdRead   = ErrorType.Code("failed to read system id")
	ErrMessageIdRead  = ErrorType.Code("failed to read message id")
	ErrUnknownSystem  = ErrorType.Code("system not found")
	ErrUnknownMessage = ErrorType.Code("message not found")
)

// timeouter is implemented by source errors (net.Error, serial port
// errors) that distinguish "no data arrived yet" from an actual fault;
// the decode loop treats a timeout as a spurious wake-up and retries.
type timeouter interface {
	Timeout() bool
}

// Decoder runs the blocking read loop over one source, against one
// System Registry, printing rendered log lines to out and per-frame
// diagnostics to errOut.
type Decoder struct {
	r        *bufio.Reader
	registry *ulog.Registry
	out      io.Writer
	errOut   io.Writer
}

// NewDecoder wraps r for delimited reads and binds it to registry as the
// lookup source for incoming frames.
func NewDecoder(r io.Reader, registry *ulog.Registry, out, errOut io.Writer) *Decoder {
	return &Decoder{r: bufio.NewReader(r), registry: registry, out: out, errOut: errOut}
}

// Run reads and decodes frames until the source reports a clean EOF. A
// non-timeout read error is treated as unrecoverable and returned; every
// other per-frame failure is diagnosed and the loop continues.
func (d *Decoder) Run() er.R {
	for {
		eof, err := d.next()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}
	}
}

func (d *Decoder) next() (eof bool, fatal er.R) {
	raw, err := d.r.ReadBytes(0x00)
	switch {
	case err == nil:
		// Got a full, delimited frame.
	case err == io.EOF:
		// Either a clean end of stream (raw empty) or a partial,
		// unterminated tail right at EOF; neither is a complete frame.
		return true, nil
	default:
		if to, ok := err.(timeouter); ok && to.Timeout() {
			return false, nil
		}
		return false, ErrEntryRead.New(err.Error(), er.E(err))
	}
	if len(raw) == 0 {
		return true, nil
	}

	d.decodeFrame(raw)
	return false, nil
}

func (d *Decoder) decodeFrame(raw []byte) {
	payload := raw
	if len(payload) > 0 && payload[len(payload)-1] == 0x00 {
		payload = payload[:len(payload)-1]
	}

	decoded, derr := rzcobs.Decode(payload)
	if derr != nil {
		d.reportFrameError(ErrRzcobs.New("", derr), "", nil, raw)
		return
	}

	r := bytes.NewReader(decoded)
	var systemID, messageID uint16
	if err := binary.Read(r, binary.BigEndian, &systemID); err != nil {
		d.reportFrameError(ErrSystemIdRead.New(err.Error(), er.E(err)), "", decoded, raw)
		return
	}
	if err := binary.Read(r, binary.BigEndian, &messageID); err != nil {
		d.reportFrameError(ErrMessageIdRead.New(err.Error(), er.E(err)), "", decoded, raw)
		return
	}

	dict := d.registry.Lookup(systemID)
	if dict == nil {
		d.reportFrameError(ErrUnknownSystem.Default(), "", decoded, raw)
		return
	}
	msg, ok := dict.Messages[messageID]
	if !ok {
		d.reportFrameError(ErrUnknownMessage.Default(), "", decoded, raw)
		return
	}
	parsedDump := spew.Sdump(msg)

	rendered, rerr := msg.Render(r, dict.Strings)
	if rerr != nil {
		d.reportFrameError(rerr, parsedDump, decoded, raw)
		return
	}

	fmt.Fprintf(d.out, "[%s] %s\n    From: 0x%X(file://%s:%d)\n",
		colorizeSeverity(msg.Severity), rendered, systemID, *msg.Location.File, msg.Location.Line)
}

var severityColors = map[ulog.SeverityLevel]*color.Color{
	ulog.SeverityEmergency: color.New(color.FgHiRed, color.Bold),
	ulog.SeverityAlert:     color.New(color.FgHiRed, color.Bold),
	ulog.SeverityCritical:  color.New(color.FgRed, color.Bold),
	ulog.SeverityError:     color.New(color.FgRed),
	ulog.SeverityWarning:   color.New(color.FgYellow),
	ulog.SeverityNotice:    color.New(color.FgCyan),
	ulog.SeverityInfo:      color.New(color.FgGreen),
	ulog.SeverityDebug:     color.New(color.FgBlue),
	ulog.SeverityTrace:     color.New(color.FgWhite),
}

func colorizeSeverity(level ulog.SeverityLevel) string {
	if c, ok := severityColors[level]; ok {
		return c.Sprint(level.String())
	}
	return level.String()
}

func (d *Decoder) reportFrameError(err er.R, parsedDump string, decoded, raw []byte) {
	vtlog.Errorf("frame decode failed: %s", err.Message())
	fmt.Fprintf(d.errOut, "%s\n%s\n", banner(" PARSED ENTRY "), orNone(parsedDump))
	fmt.Fprintf(d.errOut, "%s\n%s\n", banner(" DECODED ENTRY "), hexOrNone(decoded))
	fmt.Fprintf(d.errOut, "%s\n%s\n", banner(" RAW ENTRY "), hex.Dump(raw))
}

func banner(title string) string {
	const width = 80
	pad := width - len(title)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	right := pad - left
	return strings.Repeat("━", left) + title + strings.Repeat("━", right)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func hexOrNone(b []byte) string {
	if b == nil {
		return "None"
	}
	return hex.Dump(b)
}
