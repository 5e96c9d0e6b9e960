package ulog

import (
	"fmt"

	"github.com/alexkar598/ulog-decoder/internal/er"
	"github.com/alexkar598/ulog-decoder/internal/template"
)

// MessageErrorType groups faults raised while rendering a single frame
// against its message template.
var MessageErrorType = er.NewErrorType("ulog.ULogMessageRenderError")

// Format is the code for a template-level rendering failure (argument count
// mismatch between the compiled template and the declared argument list).
var Format = MessageErrorType.Code("format template rejected the decoded arguments")

// ULogArgumentRead is returned with an appended ordinal when decoding the
// wire bytes for one argument fails; see ULogArgumentRead.
var ULogArgumentRead = MessageErrorType.Code("failed to decode argument")

// ULogMessage is one compiled log template: a severity, a format string,
// its argument skeleton in declaration order, and the source location the
// entries were logged from.
type ULogMessage struct {
	ID       uint16
	Severity SeverityLevel
	Template *template.FormatString
	Args     []Argument
	Location Location
}

// AppendArg appends one argument skeleton to the declaration-order list.
// Load-time only: nothing after the dictionary is built calls this.
func (m *ULogMessage) AppendArg(a Argument) {
	m.Args = append(m.Args, a)
}

// Render decodes one frame's packed argument bytes against this message's
// argument skeleton, in declaration order, and substitutes the results
// into the compiled template. On a decode failure partway through the
// argument list, it reports which 0-based ordinal failed; remaining
// arguments are left unset (and would render as "(nil)") but are not
// separately reported, since the stream position is already desynced.
func (m *ULogMessage) Render(r reader, strings map[uint16]*ULogString) (string, er.R) {
	args := make([]Argument, len(m.Args))
	for i, skeleton := range m.Args {
		args[i] = skeleton.Clone()
	}

	rendered := make([]string, len(args))
	for i := range args {
		if err := args[i].Decode(r, strings); err != nil {
			return "", ULogArgumentRead.New(fmt.Sprintf("argument %d: %s", i, err.Message()), err)
		}
		rendered[i] = args[i].Render()
	}

	out, err := m.Template.Render(rendered)
	if err != nil {
		return "", Format.New(err.Message(), err)
	}
	return out, nil
}
