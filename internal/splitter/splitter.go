// Package splitter implements the delimited-field splitting used to decode
// the compiler-embedded symbol names in a uLog dictionary: fields separated
// by a single ASCII delimiter, with optional double-quoting (and backslash
// escaping) for fields that would otherwise contain the delimiter.
package splitter

import (
	"strconv"
	"strings"

	"github.com/alexkar598/ulog-decoder/internal/er"
)

var ErrorType = er.NewErrorType("splitter.SplitSegmentError")

var (
	ErrNonAsciiDelim        = ErrorType.Code("delim must be an ascii character")
	ErrUnbalancedQuotes     = ErrorType.Code("unbalanced quotes")
	ErrPartiallyQuotedField = ErrorType.Code("quotes do not encompass the entire field")
	ErrUnescape             = ErrorType.Code("invalid escape sequence")
)

// Split splits s on delim into an ordered list of fields. A field is quoted
// iff its first byte is '"'; the closing quote is the next unescaped '"'
// (one preceded by an even number of consecutive backslashes), and it must
// be followed by end-of-input or delim. Quoted fields are then C-style
// unescaped; unquoted fields are taken verbatim. The empty string yields a
// single empty field, and a trailing delimiter yields a trailing empty
// field.
func Split(s string, delim byte) ([]string, er.R) {
	if delim > 0x7f {
		return nil, ErrNonAsciiDelim.New("", nil)
	}

	var fields []string
	rest := s
	for {
		field, tail, hadRest, err := splitOnce(rest, delim)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		if !hadRest {
			break
		}
		rest = tail
	}
	return fields, nil
}

// splitOnce peels one field off the front of s, returning the field, the
// remainder (valid only when hasRest is true), and whether there was a
// remainder at all (false means s was fully consumed with no trailing
// delimiter).
func splitOnce(s string, delim byte) (field string, rest string, hasRest bool, errR er.R) {
	if s == "" {
		return "", "", false, nil
	}

	if s[0] != '"' {
		idx := strings.IndexByte(s, delim)
		if idx < 0 {
			return s, "", false, nil
		}
		return s[:idx], s[idx+1:], true, nil
	}

	end, err := findClosingQuote(s, 1, delim)
	if err != nil {
		return "", "", false, err
	}
	if end < 0 {
		return "", "", false, ErrUnbalancedQuotes.New("", nil)
	}

	after := s[end+1:]
	if len(after) > 0 && after[0] != delim {
		return "", "", false, ErrPartiallyQuotedField.New("", nil)
	}

	inner := s[1:end]
	unescaped, uerr := unescapeSegment(inner)
	if uerr != nil {
		return "", "", false, ErrUnescape.New(uerr.Error(), nil)
	}

	if after == "" {
		return unescaped, "", false, nil
	}
	return unescaped, after[1:], true, nil
}

// findClosingQuote scans s starting at offset start for the next '"' that
// is preceded by an even number of consecutive backslashes (i.e. is not
// itself escaped). Returns -1 if none is found.
func findClosingQuote(s string, start int, delim byte) (int, er.R) {
	for pos := start; pos < len(s); {
		idx := strings.IndexByte(s[pos:], '"')
		if idx < 0 {
			return -1, nil
		}
		quoteAt := pos + idx

		backslashes := 0
		for i := quoteAt - 1; i >= 0 && s[i] == '\\'; i-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return quoteAt, nil
		}
		pos = quoteAt + 1
	}
	return -1, nil
}

// unescapeSegment applies C-style (equivalently, Go string literal) escape
// decoding: \n \t \\ \" \xNN \uNNNN and octal sequences. strconv.Unquote
// implements exactly this grammar for double-quoted Go literals, so a
// quoted re-wrap is the direct, idiomatic way to get it without hand
// rolling an escape-sequence state machine.
func unescapeSegment(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	quoted := "\"" + s + "\""
	return strconv.Unquote(quoted)
}
