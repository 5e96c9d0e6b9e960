// Package template compiles the printf-style format strings carved into a
// device's firmware image (e.g. "val=%d, name=%s") and substitutes already
// -rendered argument text into them at frame decode time. It stands in for
// the "external formatting library" the core decoder is specified to
// delegate to: the dictionary loader only needs the template compiled once
// (so a malformed format string is caught at load time, not at every
// frame), and the frame decoder only needs to push rendered argument
// strings through it in declaration order.
package template

import (
	"strings"

	"github.com/alexkar598/ulog-decoder/internal/er"
)

var ErrorType = er.NewErrorType("template.Error")

var (
	ErrDanglingPercent = ErrorType.Code("dangling '%%' at end of format string")
	ErrArgumentCount   = ErrorType.Code("argument count does not match the number of verbs in the template")
)

// verbChars is the set of conversion characters recognized as consuming one
// argument. Flags, width and precision (digits, '.', '-', '+', '0', ' ',
// '#') are skipped over without being otherwise interpreted, since the
// rendered argument text is substituted as-is rather than re-formatted.
const verbChars = "diouxXeEfFgGscp"

// segment is either a literal run of text or a placeholder consuming one
// argument.
type segment struct {
	literal string
	isVerb  bool
}

// FormatString is a compiled template, ready for repeated rendering.
type FormatString struct {
	segments []segment
	numArgs  int
	raw      string
}

// Compile parses and validates a format string once at dictionary-load
// time, so a malformed template fails the whole load rather than every
// frame render.
func Compile(format string) (*FormatString, er.R) {
	var segs []segment
	var lit strings.Builder
	numArgs := 0

	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' {
			lit.WriteRune(c)
			continue
		}
		if i+1 >= len(runes) {
			return nil, ErrDanglingPercent.New("", nil)
		}
		// Escaped literal percent.
		if runes[i+1] == '%' {
			lit.WriteRune('%')
			i++
			continue
		}
		// Scan past flags/width/precision/length modifiers up to the
		// conversion character.
		j := i + 1
		for j < len(runes) && !strings.ContainsRune(verbChars, runes[j]) {
			j++
			if j >= len(runes) {
				// No recognized conversion character; treat the whole
				// run as a literal verb placeholder anyway so odd
				// device format strings don't abort the load.
				break
			}
		}
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
		segs = append(segs, segment{isVerb: true})
		numArgs++
		if j < len(runes) {
			i = j
		} else {
			i = len(runes) - 1
		}
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{literal: lit.String()})
	}

	return &FormatString{segments: segs, numArgs: numArgs, raw: format}, nil
}

// Raw returns the original, uncompiled format text.
func (f *FormatString) Raw() string { return f.raw }

// NumArgs returns how many argument placeholders this template expects.
func (f *FormatString) NumArgs() int { return f.numArgs }

// Render substitutes args, in order, for this template's verb placeholders
// and returns the assembled string. len(args) must equal f.NumArgs().
func (f *FormatString) Render(args []string) (string, er.R) {
	if len(args) != f.numArgs {
		return "", ErrArgumentCount.New("", nil)
	}
	var out strings.Builder
	argIdx := 0
	for _, s := range f.segments {
		if s.isVerb {
			out.WriteString(args[argIdx])
			argIdx++
			continue
		}
		out.WriteString(s.literal)
	}
	return out.String(), nil
}
