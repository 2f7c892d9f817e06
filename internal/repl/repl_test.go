package repl

import (
	"bytes"
	"strings"
	"testing"
)

func TestGlobalsPersistAcrossTurns(t *testing.T) {
	in := strings.NewReader("a := 10\nb := 20\nprintln(a + b)\nquit\n")
	var out bytes.Buffer
	Run(in, &out)

	if !strings.Contains(out.String(), "30\n") {
		t.Fatalf("expected a global defined in one turn to be visible in a later one, output: %q", out.String())
	}
}

func TestSessionSurvivesRuntimeError(t *testing.T) {
	in := strings.NewReader("println(missing)\nprintln(1 + 2)\nquit\n")
	var out bytes.Buffer
	Run(in, &out)

	got := out.String()
	if !strings.Contains(got, "missing") {
		t.Fatalf("expected the error report to name the unknown global, output: %q", got)
	}
	if !strings.Contains(got, "3\n") {
		t.Fatalf("expected the turn after an error to run normally, output: %q", got)
	}
}

func TestQuitEndsSession(t *testing.T) {
	in := strings.NewReader("quit\nprintln(1)\n")
	var out bytes.Buffer
	Run(in, &out)

	if strings.Contains(out.String(), "1\n") {
		t.Fatalf("expected no turn to run after quit, output: %q", out.String())
	}
}
