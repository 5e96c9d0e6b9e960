// Package vtlog is the ambient diagnostic logger for ulog-decoder: a
// single global, level-filtered, optionally colorized logger in the style
// of pktlog/log, used for the tool's own startup/shutdown/config chatter
// (as opposed to the decoded device log lines themselves, which are
// printed directly by the frame decoder).
package vtlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/alexkar598/ulog-decoder/internal/er"
)

// Flags modify a Backend's output.
const (
	Llongfile uint32 = 1 << iota
	Lshortfile
	Lcolor
	Llongdate
)

// Level is the level at which the logger is configured. Messages below the
// configured level are filtered.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
	LevelInvalid
)

var levelStrs = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

// LevelFromString parses a level name, case-insensitively, falling back to
// Info with ok=false for anything unrecognized.
func LevelFromString(s string) (l Level, ok bool) {
	switch strings.ToLower(s) {
	case "trace", "trc":
		return LevelTrace, true
	case "debug", "dbg":
		return LevelDebug, true
	case "info", "inf":
		return LevelInfo, true
	case "warn", "wrn":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	case "critical", "crt":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}

// SetLevel sets the global filter level. An invalid name yields an er.R.
func SetLevel(debugLevel string) er.R {
	lvl, ok := LevelFromString(debugLevel)
	if !ok {
		return er.Errorf("the specified debug level [%v] is invalid", debugLevel)
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lvl = lvl
	return nil
}

func (l Level) String() string {
	if l >= LevelOff {
		return "OFF"
	}
	return levelStrs[l]
}

const defaultLevel = LevelInfo

// newBackend creates a logger backend writing to w. Flags are picked up
// from LOGFLAGS (comma-separated: none, longfile, shortfile, color,
// longdate) and otherwise default to Lshortfile|Lcolor.
func newBackend(w io.Writer) *backend {
	flags := uint32(0)
	hasFlags := false
	for _, f := range strings.Split(os.Getenv("LOGFLAGS"), ",") {
		switch f {
		case "none":
		case "longfile":
			flags |= Llongfile
		case "shortfile":
			flags |= Lshortfile
		case "color":
			flags |= Lcolor
		case "longdate":
			flags |= Llongdate
		default:
			continue
		}
		hasFlags = true
	}
	if !hasFlags {
		flags = Lshortfile | Lcolor
	}

	back := &backend{
		flag: flags,
		ch:   make(chan *[]byte, 256),
		lvl:  defaultLevel,
		w:    w,
	}
	go func() {
		for buf := range back.ch {
			w.Write(*buf)
			recycleBuffer(buf)
		}
	}()
	return back
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 120)
		return &b
	},
}

func buffer() *[]byte { return bufferPool.Get().(*[]byte) }

func recycleBuffer(b *[]byte) {
	*b = (*b)[:0]
	bufferPool.Put(b)
}

// itoa is a cheap fixed-width decimal formatter, lifted from stdlib log.
func itoa(buf *[]byte, i int, wid int) {
	var b [20]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	b[bp] = byte('0' + i)
	*buf = append(*buf, b[bp:]...)
}

const (
	reset  = "\x1b[0m"
	bright = "\x1b[1m"
	dim    = "\x1b[2m"

	fgRed    = "\x1b[31m"
	fgYellow = "\x1b[33m"
	fgWhite  = "\x1b[37m"
	bgRed    = "\x1b[41m"

	colorDbg  = dim + fgWhite
	colorWarn = bright + fgYellow
	colorErr  = bright + fgRed
	colorCrit = bright + "\x1b[30m" + bgRed
)

func formatHeader(flags uint32, buf *[]byte, t time.Time, lvl Level, file string, line int) bool {
	hasColor := false
	if flags&Lcolor == Lcolor {
		hasColor = true
		switch lvl {
		case LevelDebug:
			*buf = append(*buf, colorDbg...)
		case LevelWarn:
			*buf = append(*buf, colorWarn...)
		case LevelError:
			*buf = append(*buf, colorErr...)
		case LevelCritical:
			*buf = append(*buf, colorCrit...)
		default:
			hasColor = false
		}
	}

	if flags&Llongdate == Llongdate {
		year, month, day := t.Date()
		hour, min, sec := t.Clock()
		ms := t.Nanosecond() / 1e6
		itoa(buf, year, 4)
		*buf = append(*buf, '-')
		itoa(buf, int(month), 2)
		*buf = append(*buf, '-')
		itoa(buf, day, 2)
		*buf = append(*buf, ' ')
		itoa(buf, hour, 2)
		*buf = append(*buf, ':')
		itoa(buf, min, 2)
		*buf = append(*buf, ':')
		itoa(buf, sec, 2)
		*buf = append(*buf, '.')
		itoa(buf, ms, 3)
	} else {
		itoa(buf, int(t.Unix()), -1)
	}
	*buf = append(*buf, " ["...)
	*buf = append(*buf, lvl.String()...)
	*buf = append(*buf, "] "...)
	if flags&(Lshortfile|Llongfile) != 0 {
		*buf = append(*buf, file...)
		*buf = append(*buf, ':')
		itoa(buf, line, -1)
		*buf = append(*buf, ' ')
	}
	return hasColor
}

const calldepth = 3

func callsite(flag uint32) (file string, line int) {
	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		return "???", 0
	}
	if flag&Lshortfile != 0 {
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				file = file[i+1:]
				break
			}
		}
	}
	return file, line
}

func (b *backend) write(buf *[]byte) {
	select {
	case b.ch <- buf:
	default:
		recycleBuffer(buf)
	}
}

type backend struct {
	ch   chan *[]byte
	flag uint32
	w    io.Writer

	lock sync.RWMutex
	lvl  Level
}

var b *backend

func init() {
	b = newBackend(os.Stdout)
}

// SetOutput redirects future log output to w, e.g. a rotating log file.
func SetOutput(w io.Writer) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.w = w
}

// MultiWriter fans log output out to stdout and an additional writer,
// used when --logdir is set so diagnostics land both on the console and
// in the persisted log file.
func MultiWriter(extra io.Writer) io.Writer {
	return io.MultiWriter(os.Stdout, extra)
}

func doLog(lvl Level, format string, args ...interface{}) {
	b.lock.RLock()
	doit := lvl >= b.lvl
	w := b.w
	flag := b.flag
	b.lock.RUnlock()
	if !doit {
		return
	}

	file, line := callsite(flag)
	t := time.Now()
	bytebuf := buffer()
	hasColor := formatHeader(flag, bytebuf, t, lvl, file, line)
	buf := bytes.NewBuffer(*bytebuf)
	if format == "" {
		fmt.Fprintln(buf, args...)
	} else {
		fmt.Fprintf(buf, format, args...)
	}
	*bytebuf = buf.Bytes()
	if hasColor {
		*bytebuf = append(*bytebuf, reset...)
	}
	*bytebuf = append(*bytebuf, '\n')
	if w != os.Stdout {
		w.Write(*bytebuf)
		recycleBuffer(bytebuf)
		return
	}
	b.write(bytebuf)
}

func Trace(args ...interface{})                 { doLog(LevelTrace, "", args...) }
func Tracef(format string, args ...interface{}) { doLog(LevelTrace, format, args...) }
func Debug(args ...interface{})                 { doLog(LevelDebug, "", args...) }
func Debugf(format string, args ...interface{}) { doLog(LevelDebug, format, args...) }
func Info(args ...interface{})                  { doLog(LevelInfo, "", args...) }
func Infof(format string, args ...interface{})  { doLog(LevelInfo, format, args...) }
func Warn(args ...interface{})                  { doLog(LevelWarn, "", args...) }
func Warnf(format string, args ...interface{})  { doLog(LevelWarn, format, args...) }
func Error(args ...interface{})                 { doLog(LevelError, "", args...) }
func Errorf(format string, args ...interface{}) { doLog(LevelError, format, args...) }
