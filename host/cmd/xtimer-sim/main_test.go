package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xtimer/config"
	"xtimer/core"
	"xtimer/sim"
	"xtimer/trace"
)

func newRunner(t *testing.T) *sim.Runner {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Mask = core.MaskForWidth(16)
	r, err := sim.New(cfg, 1, 0)
	if err != nil {
		t.Fatalf("sim.New failed: %v", err)
	}
	return r
}

func TestRepl(t *testing.T) {
	r := newRunner(t)
	in := strings.NewReader(`set a 1000
set "b" 500 0 10
at c 70000
pending
advance 2000
remove c
remove nope
bogus
advance 80000
fires
stats
quit
`)
	var out bytes.Buffer
	if err := repl(r, in, &out); err != nil {
		t.Fatalf("repl failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"fire b deadline=",
		"fire a deadline=",
		`unknown timer "nope"`,
		`unknown command "bogus"`,
		"stats: fired=2",
		"lateness: mean=",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "fire c") {
		t.Error("Removed timer fired")
	}
	if strings.Index(got, "fire b") > strings.Index(got, "fire a") {
		t.Error("Timers fired out of order")
	}
}

func TestReplUsageErrors(t *testing.T) {
	r := newRunner(t)
	var out bytes.Buffer
	for _, args := range [][]string{
		{"set", "a"},
		{"set", "a", "x"},
		{"set", "a", "10", "5000000000"},
		{"remove"},
		{"advance"},
	} {
		if _, err := execute(r, args, &out); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
	if quit, err := execute(r, []string{"quit"}, &out); !quit || err != nil {
		t.Errorf("quit returned %v, %v", quit, err)
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	runOpts.db = filepath.Join(dir, "trace.db")
	runOpts.json = filepath.Join(dir, "run.json")
	runOpts.dump = true
	defer func() { runOpts.db, runOpts.json, runOpts.dump = "", "", false }()

	s, err := config.Load([]byte(`
name: cli
mux:
  width: 16
timers:
  - name: a
    offset: 1000
  - name: b
    at: 70000
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var out bytes.Buffer
	if err := runScenario(s, &out); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	if !strings.Contains(out.String(), "cli: ") || !strings.Contains(out.String(), "Timing Ring Dump") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	f, err := os.Open(runOpts.json)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	run, err := trace.ReadJSON(f)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if run.Name != "cli" || len(run.Fires) != 2 {
		t.Errorf("Unexpected run %+v", run)
	}

	store, err := trace.Open(runOpts.db)
	if err != nil {
		t.Fatalf("trace.Open failed: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs()
	if err != nil || len(runs) != 1 {
		t.Errorf("Expected one stored run, got %v, %v", runs, err)
	}
}

func TestLive(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the host clock")
	}
	var out bytes.Buffer
	run, err := live(100*time.Millisecond, 20, 2, 5000, &out)
	if err != nil {
		t.Fatalf("live failed: %v", err)
	}
	if len(run.Fires) == 0 {
		t.Fatal("Expected fires from the host clock")
	}
	if run.Summary.Early != 0 {
		t.Errorf("Expected no early fires, got %d", run.Summary.Early)
	}

	if _, err := live(time.Millisecond, 16, 0, 5000, &out); err == nil {
		t.Error("Expected error for zero timers")
	}
}
