package neoconsole

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeEvalNeedsBlankLine(t *testing.T) {
	got := string(EvalCommand("3 + 4").Encode())
	if got != "eval 3 + 4\n\n" {
		t.Fatalf("encode: %q", got)
	}
}

func TestEncodeGet(t *testing.T) {
	got := string(MetricCommand("memory.free").Encode())
	if got != "get memory.free\n" {
		t.Fatalf("encode: %q", got)
	}
}

func TestEncodeBareKeyword(t *testing.T) {
	got := string(Command{Keyword: "history"}.Encode())
	if got != "history\n" {
		t.Fatalf("encode: %q", got)
	}
}

func TestEncodeEmptyKeywordDefaultsToEval(t *testing.T) {
	got := string(Command{Argument: "1+1"}.Encode())
	if !strings.HasPrefix(got, "eval ") {
		t.Fatalf("encode: %q", got)
	}
}

func TestDecodeStripsGreetingEchoAndPrompt(t *testing.T) {
	cmd := EvalCommand("3 + 4")
	raw := "NeoConsole Pharo-10.0.0\n" +
		"Pharo-10.0.0+SNAPSHOT.build.521 (64 Bit)\n" +
		"pharo> eval 3 + 4\n" +
		"7\n" +
		"pharo> "
	got, err := cmd.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "7" {
		t.Fatalf("payload: %q", got)
	}
}

func TestDecodeMetricReply(t *testing.T) {
	got, err := MetricCommand("memory.free").Decode("123456\npharo> ")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "123456" {
		t.Fatalf("payload: %q", got)
	}
}

func TestDecodeResultOnPromptLine(t *testing.T) {
	got, err := EvalCommand("6 * 7").Decode("pharo> 42\npharo> ")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "42" {
		t.Fatalf("payload: %q", got)
	}
}

func TestDecodeStopsAtBye(t *testing.T) {
	got, err := EvalCommand("3 + 4").Decode("7\nBye!\nleftover noise\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "7" {
		t.Fatalf("payload: %q", got)
	}
}

func TestDecodeErrorMarkers(t *testing.T) {
	cmd := SourceOf("Array", "doesNotExist")
	cases := []string{
		"Error: key not found\npharo> ",
		"MessageNotUnderstood: Array>>doesNotExist\npharo> ",
		"ZeroDivide: division by zero\npharo> ",
	}
	for _, raw := range cases {
		_, err := cmd.Decode(raw)
		var evalErr *EvalError
		if !errors.As(err, &evalErr) {
			t.Fatalf("%q: expected EvalError, got %v", raw, err)
		}
		if evalErr.Message == "" {
			t.Fatalf("%q: empty message", raw)
		}
	}
}

func TestDecodeErrorMarkerOnlyOnFirstLine(t *testing.T) {
	raw := "printOn: aStream\n\tself error: 'Error: boom'\npharo> "
	got, err := SourceOf("Point", "printOn:").Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(got, "boom") {
		t.Fatalf("payload: %q", got)
	}
}

func TestDecodeIsIdempotent(t *testing.T) {
	cmd := MetricCommand("memory.free")
	raw := "NeoConsole greeting\n123456\npharo> "
	a, errA := cmd.Decode(raw)
	b, errB := cmd.Decode(raw)
	if a != b || (errA == nil) != (errB == nil) {
		t.Fatalf("decode not idempotent: %q/%v vs %q/%v", a, errA, b, errB)
	}
}

func TestDecodeMalformedReply(t *testing.T) {
	_, err := EvalCommand("1+1").Decode("garbage with no delimiter")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	got, err := EvalCommand("1+1").Decode("")
	if err != nil || got != "" {
		t.Fatalf("decode empty: %q %v", got, err)
	}
}

func TestIntrospectionCommands(t *testing.T) {
	cases := []struct {
		cmd  Command
		want string
	}{
		{CommentOf("Array"), "Array comment"},
		{DefinitionOf("Array"), "Array definitionString"},
		{SelectorsOf("Array"), "Array selectors"},
		{SourceOf("Array", "at:put:"), "Array sourceCodeAt: #at:put:"},
	}
	for _, c := range cases {
		if c.cmd.Argument != c.want {
			t.Fatalf("command %q, want %q", c.cmd.Argument, c.want)
		}
		if c.cmd.Keyword != "eval" {
			t.Fatalf("keyword %q, want eval", c.cmd.Keyword)
		}
	}
}

func TestMetacelloLoad(t *testing.T) {
	cmd := MetacelloLoad("Historia", "github://mumez/Historia:main/src")
	if !strings.Contains(cmd.Argument, "baseline: 'Historia'") ||
		!strings.Contains(cmd.Argument, "repository: 'github://mumez/Historia:main/src'") {
		t.Fatalf("argument: %q", cmd.Argument)
	}
}
