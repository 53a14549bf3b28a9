package console

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTaggedLines(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Info("probing %s", "http://localhost:3000")
	p.Success("project created")
	p.Warning("no files matched")
	p.Error("analysis failed")

	out := buf.String()
	for _, want := range []string{"[INFO]", "[SUCCESS]", "[WARNING]", "[ERROR]",
		"probing http://localhost:3000", "project created", "no files matched", "analysis failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBannerAndSection(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Banner("MIGR8 SMOKE TEST")
	p.Section("Stage 1: Health Check")

	out := buf.String()
	if !strings.Contains(out, "═══") {
		t.Errorf("banner missing border:\n%s", out)
	}
	if !strings.Contains(out, "MIGR8 SMOKE TEST") {
		t.Errorf("banner missing title:\n%s", out)
	}
	if !strings.Contains(out, "Stage 1: Health Check") {
		t.Errorf("section missing title:\n%s", out)
	}
}

func TestStageLines(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Stage(true, "health", 120*time.Millisecond, "")
	p.Stage(false, "analyze", 3*time.Second, "analysis did not complete")

	out := buf.String()
	if !strings.Contains(out, "health (120ms)") {
		t.Errorf("missing passing stage line:\n%s", out)
	}
	if !strings.Contains(out, "analyze (3000ms)") {
		t.Errorf("missing failing stage line:\n%s", out)
	}
	if !strings.Contains(out, "Error: analysis did not complete") {
		t.Errorf("missing stage error detail:\n%s", out)
	}
}

func TestCounts(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Counts("Messages received", map[string]int{"progress": 7, "log": 3})

	out := buf.String()
	if !strings.Contains(out, "progress") || !strings.Contains(out, "7") {
		t.Errorf("missing progress tally:\n%s", out)
	}
	if !strings.Contains(out, "total") || !strings.Contains(out, "10") {
		t.Errorf("missing total line:\n%s", out)
	}

	progressAt := strings.Index(out, "progress")
	logAt := strings.Index(out, "log")
	if logAt > progressAt {
		t.Errorf("keys not sorted:\n%s", out)
	}
}

func TestCountsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Counts("Messages received", nil)

	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("empty tally should render placeholder:\n%s", buf.String())
	}
}
