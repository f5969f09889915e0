package actioncli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func connectionFlags(server *httptest.Server) []string {
	return []string{"--server", server.URL, "--user", "apiuser", "--password", "secret"}
}

func TestRunAcknowledge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/actions/acknowledge-problem" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["service"] != "Host1!ping4" || payload["author"] != "ops" {
			t.Fatalf("unexpected payload %#v", payload)
		}
		w.Write([]byte(`{"results":[{"code":200,"status":"Successfully acknowledged problem"}]}`))
	}))
	defer server.Close()

	out := &bytes.Buffer{}
	args := append([]string{
		"acknowledge",
		"--host", "Host1", "--service", "ping4",
		"--author", "ops", "--comment", "known issue",
	}, connectionFlags(server)...)
	if err := Run(context.Background(), args, Dependencies{Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Successfully acknowledged problem") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunNotifyWithoutTargetFailsLocally(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	args := append([]string{
		"notify",
		"--author", "ops", "--comment", "maintenance",
	}, connectionFlags(server)...)
	err := Run(context.Background(), args, Dependencies{Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for missing target")
	}
	if calls != 0 {
		t.Fatalf("expected no request before validation, got %d", calls)
	}
}

func TestRunDowntimeUsesFixedClock(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["start_time"] != float64(now.Unix()) {
			t.Fatalf("unexpected start_time %#v", payload["start_time"])
		}
		if payload["end_time"] != float64(now.Add(2*time.Hour).Unix()) {
			t.Fatalf("unexpected end_time %#v", payload["end_time"])
		}
		if payload["duration"] != float64(7200) {
			t.Fatalf("unexpected duration %#v", payload["duration"])
		}
		w.Write([]byte(`{"results":[{"code":200,"status":"Successfully scheduled downtime"}]}`))
	}))
	defer server.Close()

	args := append([]string{
		"downtime",
		"--host", "Host1",
		"--author", "ops", "--comment", "maintenance",
		"--duration", "2h",
	}, connectionFlags(server)...)
	deps := Dependencies{Out: &bytes.Buffer{}, Now: func() time.Time { return now }}
	if err := Run(context.Background(), args, deps); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRemoveCommentByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["type"] != "Comment" || payload["comment"] != "Host1!ping4!c-1" {
			t.Fatalf("unexpected payload %#v", payload)
		}
		w.Write([]byte(`{"results":[{"code":200,"status":"Successfully removed comment"}]}`))
	}))
	defer server.Close()

	args := append([]string{"remove-comment", "--name", "Host1!ping4!c-1"}, connectionFlags(server)...)
	if err := Run(context.Background(), args, Dependencies{Out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunUnknownVerb(t *testing.T) {
	if err := Run(context.Background(), []string{"explode"}, Dependencies{Out: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}
