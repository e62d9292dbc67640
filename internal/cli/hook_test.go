package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/logger"
)

// testComponents builds the full wiring against a throwaway home directory.
// PATH is emptied so no real provider binary can be found; escalations must
// take the fail-closed path.
func testComponents(t *testing.T) *components {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", t.TempDir())

	c, err := buildComponents()
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}
	t.Cleanup(c.close)
	return c
}

func TestDispatchBashCommand(t *testing.T) {
	c := testComponents(t)
	ctx := context.Background()

	ev, err := hookevent.Parse([]byte(`{"event":"bash_command","command":"python3 run.py"}`))
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch(ctx, c, ev)
	if d.Outcome != hookevent.Deny {
		t.Fatalf("expected deny from default rules, got %s (%s)", d.Outcome, d.Reason)
	}

	ev, err = hookevent.Parse([]byte(`{"event":"bash_command","command":"git status"}`))
	if err != nil {
		t.Fatal(err)
	}
	if d := dispatch(ctx, c, ev); d.Outcome != hookevent.Allow {
		t.Fatalf("expected allow, got %s (%s)", d.Outcome, d.Reason)
	}
}

func TestDispatchFileEditFailsClosedWithoutBackend(t *testing.T) {
	c := testComponents(t)

	ev, err := hookevent.Parse([]byte(`{"event":"file_edit","path":"src/a.py",` +
		`"old_content":"x = 1\n","new_content":"x = 1  # pragma: no cover\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch(context.Background(), c, ev)
	if d.Outcome != hookevent.Deny {
		t.Fatalf("expected fail-closed deny, got %s", d.Outcome)
	}
	if !strings.HasPrefix(d.Reason, audit.UnavailableReasonPrefix) {
		t.Errorf("expected unavailable tag, got %q", d.Reason)
	}
}

func TestDispatchCompletionCheck(t *testing.T) {
	c := testComponents(t)

	ev, err := hookevent.Parse([]byte(`{"event":"completion_check",` +
		`"transcript":[{"role":"assistant","content":"still working on it"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch(context.Background(), c, ev)
	if d.Outcome != hookevent.Deny || d.Reason != "completion not signaled" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestDispatchWritesDecisionLog(t *testing.T) {
	c := testComponents(t)

	ev, err := hookevent.Parse([]byte(`{"event":"bash_command","command":"rm -rf /"}`))
	if err != nil {
		t.Fatal(err)
	}
	dispatch(context.Background(), c, ev)

	f, err := os.Open(c.cfg.LogPath)
	if err != nil {
		t.Fatalf("decision log missing: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("decision log is empty")
	}
	var rec logger.Event
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec.Hook != "bash_command" || rec.Decision != "deny" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Subject != "rm -rf /" {
		t.Errorf("subject not recorded: %q", rec.Subject)
	}
	if rec.Executable != "rm" {
		t.Errorf("executable not recorded: %q", rec.Executable)
	}
	if len(rec.Paths) != 1 || rec.Paths[0] != "/" {
		t.Errorf("referenced paths not recorded: %v", rec.Paths)
	}
}

func TestDispatchRecordsResolvedPaths(t *testing.T) {
	c := testComponents(t)

	ev, err := hookevent.Parse([]byte(`{"event":"bash_command","command":"cat docs/readme.md","cwd":"/repo"}`))
	if err != nil {
		t.Fatal(err)
	}
	dispatch(context.Background(), c, ev)

	f, err := os.Open(c.cfg.LogPath)
	if err != nil {
		t.Fatalf("decision log missing: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("decision log is empty")
	}
	var rec logger.Event
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Executable != "cat" {
		t.Errorf("executable not recorded: %q", rec.Executable)
	}
	if len(rec.Paths) != 1 || rec.Paths[0] != "/repo/docs/readme.md" {
		t.Errorf("paths should be resolved against cwd: %v", rec.Paths)
	}
}

func TestHookCommandMalformedInputFailsOpen(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", t.TempDir())

	stdin, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stdin.WriteString(`{"event":`); err != nil {
		t.Fatal(err)
	}
	if _, err := stdin.Seek(0, 0); err != nil {
		t.Fatal(err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	oldIn, oldOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = stdin, w
	defer func() { os.Stdin, os.Stdout = oldIn, oldOut }()

	runErr := hookCommand(hookCmd, nil)
	w.Close()
	os.Stdin, os.Stdout = oldIn, oldOut

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if runErr != nil {
		t.Fatalf("malformed input must not exit non-zero: %v", runErr)
	}

	var wire map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out), &wire); err != nil {
		t.Fatalf("response is not JSON: %v (output %q)", err, out)
	}
	if wire["decision"] != "allow" {
		t.Errorf("malformed input must fail open, got %v", wire)
	}
}

func TestSessionDisablesHooks(t *testing.T) {
	enabled := true
	disabled := false

	tests := []struct {
		name    string
		session *config.Session
		want    bool
	}{
		{"no session", nil, false},
		{"explicit false", &config.Session{SessionID: "s1", HooksEnabled: &disabled}, true},
		{"explicit true", &config.Session{SessionID: "s1", HooksEnabled: &enabled}, false},
		{"key omitted", &config.Session{SessionID: "s1"}, false},
		{"no session id", &config.Session{HooksEnabled: &disabled}, false},
	}
	for _, tt := range tests {
		if got := sessionDisablesHooks(tt.session); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBuildComponentsUsesConfiguredPolicy(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", t.TempDir())

	dir := filepath.Join(home, ".agentgate")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	rules := `
version: 1
rules:
  - id: no-curl
    scope: command
    pattern: '\bcurl\b'
    message: "network fetches are not allowed here"
`
	if err := os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(rules), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := buildComponents()
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}
	defer c.close()

	d := c.guard.Check("curl https://example.com")
	if d.Outcome != hookevent.Deny || d.RuleID != "no-curl" {
		t.Fatalf("configured rule not applied: %+v", d)
	}
	if d := c.guard.Check("rm -rf /"); d.Outcome != hookevent.Allow {
		t.Fatalf("custom rules file replaces the defaults, got %+v", d)
	}
}
