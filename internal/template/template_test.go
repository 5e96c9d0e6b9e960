package template

import "testing"

func TestCompileAndRenderLiteral(t *testing.T) {
	tpl, err := Compile("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if tpl.NumArgs() != 0 {
		t.Fatalf("NumArgs() = %d, want 0", tpl.NumArgs())
	}
	out, rerr := tpl.Render(nil)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr.Message())
	}
	if out != "hello" {
		t.Fatalf("Render() = %q, want %q", out, "hello")
	}
}

func TestCompileAndRenderVerbs(t *testing.T) {
	tpl, err := Compile("val=%d, name=%s!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if tpl.NumArgs() != 2 {
		t.Fatalf("NumArgs() = %d, want 2", tpl.NumArgs())
	}
	out, rerr := tpl.Render([]string{"-8388608", "world"})
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr.Message())
	}
	want := "val=-8388608, name=world!"
	if out != want {
		t.Fatalf("Render() = %q, want %q", out, want)
	}
}

func TestCompileEscapedPercent(t *testing.T) {
	tpl, err := Compile("100%% done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if tpl.NumArgs() != 0 {
		t.Fatalf("NumArgs() = %d, want 0", tpl.NumArgs())
	}
	out, rerr := tpl.Render(nil)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr.Message())
	}
	if out != "100% done" {
		t.Fatalf("Render() = %q, want %q", out, "100% done")
	}
}

func TestCompileDanglingPercent(t *testing.T) {
	_, err := Compile("value: %")
	if err == nil || !ErrDanglingPercent.Is(err) {
		t.Fatalf("expected ErrDanglingPercent, got %v", err)
	}
}

func TestRenderArgumentCountMismatch(t *testing.T) {
	tpl, err := Compile("%d %d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	_, rerr := tpl.Render([]string{"1"})
	if rerr == nil || !ErrArgumentCount.Is(rerr) {
		t.Fatalf("expected ErrArgumentCount, got %v", rerr)
	}
}

func TestCompileWidthAndFlags(t *testing.T) {
	// Width/precision/flag characters are skipped over uninterpreted; the
	// argument text is substituted as-is regardless of what the device's
	// conversion spec asked for.
	tpl, err := Compile("%05.2f units")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Message())
	}
	if tpl.NumArgs() != 1 {
		t.Fatalf("NumArgs() = %d, want 1", tpl.NumArgs())
	}
	out, rerr := tpl.Render([]string{"3.14"})
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr.Message())
	}
	if out != "3.14 units" {
		t.Fatalf("Render() = %q, want %q", out, "3.14 units")
	}
}
