// Package er implements a chained, typed error mechanism used throughout
// ulog-decoder in place of bare `error` values. Every er.R carries an
// optional captured stack trace and a chain of wrapped causes, and every
// fault condition the dictionary loader and frame decoder can hit is
// registered as a named ErrorCode under a package-scoped ErrorType so
// callers can Is()/Decode() against it instead of string-matching.
package er

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/alexkar598/ulog-decoder/internal/version"
)

// GenericErrorType holds error codes for packages that only need one or two
// and so don't warrant their own ErrorType.
var GenericErrorType = NewErrorType("er.GenericErrorType")

var ErrUnexpectedEOF = GenericErrorType.CodeWithDefault("ErrUnexpectedEOF", io.ErrUnexpectedEOF)
var EOF = GenericErrorType.CodeWithDefault("EOF", io.EOF)

// ErrorCode identifies one specific fault. Codes are grouped under an
// ErrorType so related faults (e.g. everything the dictionary loader can
// raise) can be told apart from faults raised by a different subsystem.
type ErrorCode struct {
	Detail         string
	Type           *ErrorType
	defaultWrapped error
}

type typedErr struct {
	messages []string
	errType  *ErrorType
	code     *ErrorCode
	err      R
}

// ErrorType is a namespace of related ErrorCodes.
type ErrorType struct {
	Name  string
	Codes []*ErrorCode
}

// NewErrorType creates a new error type identified by name, e.g.
// "ulog.ElfParseError".
func NewErrorType(ident string) ErrorType {
	return ErrorType{Name: ident}
}

// Is reports whether err was produced by this exact code.
func (c *ErrorCode) Is(err R) bool {
	if err == nil {
		return c == nil
	}
	if te, ok := err.(typedErr); ok {
		return te.code == c
	}
	return false
}

func (c *ErrorCode) new(info string, err R, bstack []byte) R {
	var messages []string
	if info == "" {
		messages = []string{c.Detail}
	} else {
		messages = []string{c.Detail, info}
	}
	if err == nil {
		if bstack == nil {
			bstack = captureStack()
		}
		err = newR("", bstack)
	} else if te, ok := err.(typedErr); ok {
		if te.code == c {
			if info != "" {
				te.messages = append(messages, te.messages...)
			}
			return te
		}
	}
	return typedErr{
		messages: messages,
		errType:  c.Type,
		code:     c,
		err:      err,
	}
}

// New wraps err (or, if nil, captures a fresh stack trace) under this code.
func (c *ErrorCode) New(info string, err R) R {
	if err == nil {
		return c.new(info, nil, captureStack())
	}
	return c.new(info, err, nil)
}

// Default produces this code's error with no extra context, wrapping the
// code's registered default cause if it has one.
func (c *ErrorCode) Default() R {
	if c.defaultWrapped != nil {
		return c.new("", asR(c.defaultWrapped), nil)
	}
	return c.new("", nil, captureStack())
}

// Is reports whether err belongs to this ErrorType (any code within it).
func (e *ErrorType) Is(err R) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(typedErr); ok {
		return te.errType == e
	}
	return false
}

// Decode returns the ErrorCode that produced err, or nil.
func (e *ErrorType) Decode(err R) *ErrorCode {
	if err == nil {
		return nil
	}
	if te, ok := err.(typedErr); ok {
		return te.code
	}
	return nil
}

func (e *ErrorType) newErrorCode(info string) *ErrorCode {
	result := &ErrorCode{Detail: info, Type: e}
	e.Codes = append(e.Codes, result)
	return result
}

// Code registers a new error code with no default wrapped cause.
func (e *ErrorType) Code(info string) *ErrorCode {
	return e.newErrorCode(info)
}

// CodeWithDefault registers a code whose Default() wraps defaultError.
func (e *ErrorType) CodeWithDefault(info string, defaultError error) *ErrorCode {
	ec := e.newErrorCode(info)
	ec.defaultWrapped = defaultError
	return ec
}

func (te typedErr) AddMessage(m string) {
	te.messages = append([]string{m}, te.messages...)
}

func (te typedErr) Message() string {
	tem := te.err.Message()
	if tem == "" {
		return strings.Join(te.messages, ": ")
	}
	return fmt.Sprintf("%s: %s", strings.Join(te.messages, ": "), tem)
}

func (te typedErr) HasStack() bool { return te.err.HasStack() }
func (te typedErr) Stack() []string { return te.err.Stack() }

func (te typedErr) String() string {
	s := ""
	if te.err.HasStack() {
		s = "\n\n" + strings.Join(te.err.Stack(), "\n") + "\n"
	}
	return version.String() + " " + te.Message() + s
}

func (te typedErr) Error() string { return te.String() }

func (te typedErr) Wrapped0() error { return te.err.Wrapped0() }

type typedErrAsNative struct{ e typedErr }

func (ten typedErrAsNative) Error() string { return ten.e.String() }

func (te typedErr) Native() error { return typedErrAsNative{e: te} }

// R is the interface implemented by every ulog-decoder error value.
type R interface {
	Message() string
	Stack() []string
	HasStack() bool
	String() string
	Wrapped0() error
	Native() error
	AddMessage(m string)
}

type err struct {
	messages []string
	e        error
	bstack   []byte
	stack    []string
}

type errAsNative struct{ e err }

func (e errAsNative) Error() string { return e.e.String() }

func (e err) HasStack() bool { return e.bstack != nil }

var argumentsRegex = regexp.MustCompile(`\([0-9a-fx, \.]*\)$`)
var prefixRegex = regexp.MustCompile(`^.*/alexkar598/ulog-decoder/`)
var goFileRegex = regexp.MustCompile(`\.go:[0-9]+ `)

func (e err) Stack() []string {
	if e.stack == nil {
		s := strings.Split(string(e.bstack), "\n")
		if len(s) > 5 {
			// First 5 lines are runtime/debug.Stack noise:
			// goroutine 1 [running]:
			// runtime/debug.Stack(...)
			//         .../debug/stack.go:24 +0x9d
			// .../internal/er.captureStack(...)
			//         .../er/er.go:NN
			s = s[5:]
		}
		var stack []string
		fun := ""
		for i := range s {
			x := argumentsRegex.ReplaceAllString(s[i], "()")
			x = prefixRegex.ReplaceAllString(x, "")
			x = "  " + strings.TrimSpace(x)
			if !goFileRegex.MatchString(x) {
				fun = x
			} else {
				stack = append(stack, x+"\t"+fun)
			}
		}
		e.stack = stack
	}
	return e.stack
}

func (e err) AddMessage(m string) {
	if e.messages == nil {
		e.messages = []string{m, e.e.Error()}
	} else {
		e.messages = append([]string{m}, e.messages...)
	}
}

func (e err) Message() string {
	if e.messages == nil {
		return e.e.Error()
	}
	return strings.Join(e.messages, ", ")
}

func (e err) String() string {
	s := ""
	if e.bstack != nil {
		s = "\n\n" + strings.Join(e.Stack(), "\n") + "\n"
	}
	return version.String() + " " + e.Message() + s
}

func (e err) Error() string { return e.String() }

func (e err) Wrapped0() error { return e.e }

func (e err) Native() error { return errAsNative{e: e} }

func captureStack() []byte { return debug.Stack() }

// Wrapped unwraps err one level, returning a plain stdlib error (or nil).
func Wrapped(err R) error {
	if err == nil {
		return nil
	}
	return err.Wrapped0()
}

// Native adapts err into a plain `error` for interop with stdlib/third-party
// code that doesn't know about er.R.
func Native(err R) error {
	if err == nil {
		return nil
	}
	return err.Native()
}

func newR(s string, bstack []byte) R {
	return err{e: errors.New(s), bstack: bstack}
}

// New creates a fresh er.R with a captured stack trace.
func New(s string) R { return newR(s, captureStack()) }

// Errorf is fmt.Errorf for er.R, also capturing a stack trace.
func Errorf(format string, a ...interface{}) R {
	return err{e: fmt.Errorf(format, a...), bstack: captureStack()}
}

func asR(e error) R { return err{e: e, bstack: captureStack()} }

// E adapts a plain stdlib `error` into an er.R, capturing a stack trace
// unless the error is one produced by Native() (in which case the original
// chain, stack included, is recovered).
func E(e error) R {
	if e == nil {
		return nil
	}
	if en, ok := e.(errAsNative); ok {
		return en.e
	}
	if en, ok := e.(typedErrAsNative); ok {
		return en.e
	}
	switch e {
	case io.ErrUnexpectedEOF:
		return ErrUnexpectedEOF.Default()
	case io.EOF:
		return EOF.Default()
	default:
		return asR(e)
	}
}

func equals(e, r R, fuzzy bool) bool {
	if e == nil || r == nil {
		return e == nil && r == nil
	}
	et, eok := e.(typedErr)
	rt, rok := r.(typedErr)
	if eok != rok {
		return false
	}
	if eok {
		if et.code != rt.code {
			return false
		}
		return fuzzy || reflect.DeepEqual(et.messages, rt.messages)
	}
	ee, _ := e.(err)
	re, _ := r.(err)
	return ee.e.Error() == re.e.Error()
}

// FuzzyEquals compares two errors by code (or message, for untyped errors)
// while ignoring any extra context messages layered on with AddMessage.
func FuzzyEquals(e, r R) bool { return equals(e, r, true) }
