package diag

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/cwbudde/algo-nmr/nmr"
)

type recorder struct {
	codes []int
	texts []string
}

func (r *recorder) ReportCode(code int, activity string) {
	r.codes = append(r.codes, code)
}

func (r *recorder) ReportText(desc, activity string) {
	r.texts = append(r.texts, activity+": "+desc)
}

func TestReportPrefersErrno(t *testing.T) {
	r := &recorder{}
	pathErr := &os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}
	Report(r, fmt.Errorf("acq: %w: %w", nmr.StatusIOOpen, pathErr), "load")

	if len(r.codes) != 1 || r.codes[0] != int(syscall.ENOENT) {
		t.Fatalf("codes=%v want=[ENOENT]", r.codes)
	}
	if len(r.texts) != 0 {
		t.Fatalf("texts=%v want none", r.texts)
	}
}

func TestReportText(t *testing.T) {
	r := &recorder{}
	Report(r, fmt.Errorf("engine: dft: %w", nmr.StatusAlloc), "check")
	if len(r.texts) != 1 || r.texts[0] != "check: engine: dft: allocation failure" {
		t.Fatalf("texts=%v", r.texts)
	}

	Report(r, nil, "check")
	Report(nil, errors.New("x"), "check")
	if len(r.texts) != 1 || len(r.codes) != 0 {
		t.Fatalf("nil inputs reported: %v %v", r.texts, r.codes)
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	rep := NewLogReporter(NewLogger(&buf, slog.LevelInfo))
	rep.ReportText("boom", "export")
	rep.ReportCode(int(syscall.EACCES), "load")

	out := buf.String()
	for _, want := range []string{"activity=export", "error=boom", "activity=load", fmt.Sprintf("code=%d", int(syscall.EACCES))} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %q", out, want)
		}
	}

	// A nil logger must not panic.
	NewLogReporter(nil).ReportText("quiet", "x")
}

func TestLevelFromVerbosity(t *testing.T) {
	cases := map[int]slog.Level{-1: slog.LevelWarn, 0: slog.LevelWarn, 1: slog.LevelInfo, 2: slog.LevelDebug, 5: slog.LevelDebug}
	for v, want := range cases {
		if got := LevelFromVerbosity(v); got != want {
			t.Fatalf("LevelFromVerbosity(%d)=%v want=%v", v, got, want)
		}
	}
}

func TestStatusAttr(t *testing.T) {
	a := StatusAttr(fmt.Errorf("x: %w", nmr.StatusStale|nmr.StatusIO))
	if a.Value.String() != "stale data, I/O failure" {
		t.Fatalf("attr=%v", a)
	}
}
