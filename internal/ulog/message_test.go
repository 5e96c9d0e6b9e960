package ulog

import (
	"bytes"
	"testing"

	"github.com/alexkar598/ulog-decoder/internal/template"
)

func TestMessageRenderNoArguments(t *testing.T) {
	tpl, terr := template.Compile("hello")
	if terr != nil {
		t.Fatalf("unexpected error: %v", terr.Message())
	}
	msg := &ULogMessage{ID: 1, Severity: SeverityInfo, Template: tpl}

	out, err := msg.Render(bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if out != "hello" {
		t.Fatalf("Render() = %q, want %q", out, "hello")
	}
}

func TestMessageRenderSignExtendedArgument(t *testing.T) {
	tpl, terr := template.Compile("val=%d")
	if terr != nil {
		t.Fatalf("unexpected error: %v", terr.Message())
	}
	msg := &ULogMessage{ID: 1, Severity: SeverityInfo, Template: tpl}
	msg.AppendArg(Argument{Kind: ArgInt32, Size: 3})

	out, err := msg.Render(bytes.NewReader([]byte{0x80, 0x00, 0x00}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if out != "val=-8388608" {
		t.Fatalf("Render() = %q, want %q", out, "val=-8388608")
	}
}

func TestMessageRenderDoesNotMutateSkeleton(t *testing.T) {
	tpl, terr := template.Compile("val=%d")
	if terr != nil {
		t.Fatalf("unexpected error: %v", terr.Message())
	}
	msg := &ULogMessage{ID: 1, Severity: SeverityInfo, Template: tpl}
	msg.AppendArg(Argument{Kind: ArgInt8})

	if _, err := msg.Render(bytes.NewReader([]byte{0x05}), nil); err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	// Render must clone its argument skeletons; re-rendering from a fresh
	// reader must not see a stale decoded value from the first render.
	out, err := msg.Render(bytes.NewReader([]byte{0x07}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if out != "val=7" {
		t.Fatalf("Render() = %q, want %q (skeleton was mutated across renders)", out, "val=7")
	}
}

func TestMessageRenderReportsArgumentOrdinalOnFailure(t *testing.T) {
	tpl, terr := template.Compile("%d %d")
	if terr != nil {
		t.Fatalf("unexpected error: %v", terr.Message())
	}
	msg := &ULogMessage{ID: 1, Severity: SeverityInfo, Template: tpl}
	msg.AppendArg(Argument{Kind: ArgInt8})
	msg.AppendArg(Argument{Kind: ArgInt16})

	// Only enough bytes for the first argument; the second argument's
	// decode must fail and be reported as ordinal 1.
	_, err := msg.Render(bytes.NewReader([]byte{0x01}), nil)
	if err == nil {
		t.Fatal("expected a render error")
	}
	if !ULogArgumentRead.Is(err) {
		t.Fatalf("expected ULogArgumentRead, got %v", err.Message())
	}
	if !contains(err.Message(), "argument 1:") {
		t.Fatalf("expected the error to name argument 1, got %q", err.Message())
	}
}
