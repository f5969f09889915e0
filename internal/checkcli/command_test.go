package checkcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/veldtix/icingactl/pkg/icinga2"
)

const sampleChecks = `
concurrency: 2
submit_rps: 100
checks:
  - host: Host1
    service: ping4
    command: ["/usr/lib/nagios/plugins/check_ping", "-H", "192.0.2.1"]
  - host: Host1
    service: http
    command: ["/usr/lib/nagios/plugins/check_http", "-H", "192.0.2.1"]
    timeout_sec: 10
  - host: Host2
    command: ["/usr/lib/nagios/plugins/check_ping", "-H", "192.0.2.2"]
`

func writeChecks(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write checks: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeChecks(t, sampleChecks)
	defs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if defs.Concurrency != 2 || len(defs.Checks) != 3 {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	if defs.Checks[1].TimeoutSec != 10 {
		t.Fatalf("unexpected timeout %d", defs.Checks[1].TimeoutSec)
	}
	if defs.Checks[2].Service != "" {
		t.Fatalf("expected host check, got %+v", defs.Checks[2])
	}
}

func TestLoadFileRejectsMissingCommand(t *testing.T) {
	path := writeChecks(t, "checks:\n  - host: Host1\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestRunExecutesAndSubmits(t *testing.T) {
	path := writeChecks(t, sampleChecks)

	var mu sync.Mutex
	submitted := map[string]icinga2.CheckResultRequest{}

	runner := func(ctx context.Context, command []string, timeout time.Duration) (int, string, error) {
		if strings.Contains(command[0], "check_http") {
			return 2, "HTTP CRITICAL - connection refused", nil
		}
		return 0, "PING OK", nil
	}
	submitter := func(ctx context.Context, req icinga2.CheckResultRequest) (*icinga2.CommandStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		ref := req.Target.Host
		if req.Target.Service != "" {
			ref += "!" + req.Target.Service
		}
		submitted[ref] = req
		return &icinga2.CommandStatus{Code: 200, Status: "ok"}, nil
	}

	out := &bytes.Buffer{}
	args := []string{"--file", path}
	deps := Dependencies{Out: out, Runner: runner, Submitter: submitter}
	if err := Run(context.Background(), args, deps); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(submitted) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(submitted))
	}
	if req := submitted["Host1!http"]; req.ExitStatus != 2 || req.PluginOutput != "HTTP CRITICAL - connection refused" {
		t.Fatalf("unexpected http result %+v", req)
	}
	if req := submitted["Host1!ping4"]; req.CheckSource != "icingactl" {
		t.Fatalf("unexpected check source %q", req.CheckSource)
	}
	if !strings.Contains(out.String(), "Host1!http: exit 2, submitted") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestExecuteClampsHostExitStatus(t *testing.T) {
	checks := []Definition{{Host: "Host2", Command: []string{"/bin/false"}}}
	runner := func(ctx context.Context, command []string, timeout time.Duration) (int, string, error) {
		return 2, "CRITICAL", nil
	}
	submitter := func(ctx context.Context, req icinga2.CheckResultRequest) (*icinga2.CommandStatus, error) {
		return &icinga2.CommandStatus{Code: 200}, nil
	}

	results, err := Execute(context.Background(), checks, 1, 100, Dependencies{Runner: runner, Now: time.Now}, submitter)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].ExitStatus != 1 {
		t.Fatalf("expected host exit status clamped to 1, got %+v", results)
	}
}

func TestExecuteTurnsRunErrorsIntoUnknown(t *testing.T) {
	checks := []Definition{{Host: "Host1", Service: "disk", Command: []string{"/nonexistent"}}}
	runner := func(ctx context.Context, command []string, timeout time.Duration) (int, string, error) {
		return 0, "", fmt.Errorf("fork/exec /nonexistent: no such file or directory")
	}
	submitter := func(ctx context.Context, req icinga2.CheckResultRequest) (*icinga2.CommandStatus, error) {
		return &icinga2.CommandStatus{Code: 200}, nil
	}

	results, err := Execute(context.Background(), checks, 1, 100, Dependencies{Runner: runner, Now: time.Now}, submitter)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results[0].ExitStatus != 3 || !strings.Contains(results[0].Output, "check execution failed") {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestRunReportsSubmitFailures(t *testing.T) {
	path := writeChecks(t, "checks:\n  - host: Host1\n    service: ping4\n    command: [\"/bin/true\"]\n")

	runner := func(ctx context.Context, command []string, timeout time.Duration) (int, string, error) {
		return 0, "OK", nil
	}
	submitter := func(ctx context.Context, req icinga2.CheckResultRequest) (*icinga2.CommandStatus, error) {
		return nil, fmt.Errorf("boom")
	}

	out := &bytes.Buffer{}
	err := Run(context.Background(), []string{"--file", path}, Dependencies{Out: out, Runner: runner, Submitter: submitter})
	if err == nil {
		t.Fatal("expected error when submission fails")
	}
	if !strings.Contains(out.String(), "submit failed") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
