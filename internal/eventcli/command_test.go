package eventcli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunPrintsEventsUntilMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/events" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["queue"] != "test-queue" {
			t.Fatalf("unexpected queue %#v", payload["queue"])
		}
		w.Write([]byte(`{"type":"CheckResult","timestamp":1700000000.0,"host":"Host1"}` + "\n"))
		w.Write([]byte(`{"type":"StateChange","timestamp":1700000060.0,"host":"Host1"}` + "\n"))
		w.Write([]byte(`{"type":"CheckResult","timestamp":1700000120.0,"host":"Host2"}` + "\n"))
	}))
	defer server.Close()

	out := &bytes.Buffer{}
	args := []string{
		"--types", "CheckResult,StateChange",
		"--queue", "test-queue",
		"--max", "2",
		"--server", server.URL, "--user", "apiuser", "--password", "secret",
	}
	if err := Run(context.Background(), args, Dependencies{Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %q", out.String())
	}
	if !strings.Contains(lines[0], `"CheckResult"`) || !strings.Contains(lines[1], `"StateChange"`) {
		t.Fatalf("unexpected events %q", out.String())
	}
}

func TestRunRequiresTypes(t *testing.T) {
	err := Run(context.Background(), []string{"--server", "http://localhost:1"}, Dependencies{Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for missing --types")
	}
}
