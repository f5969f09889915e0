package icinga2

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func decodeRequestBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return payload
}

func TestListObjectsBuildsExactQueryPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/objects/services" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-HTTP-Method-Override"); got != "GET" {
			t.Fatalf("expected GET override, got %q", got)
		}
		payload := decodeRequestBody(t, r)
		want := map[string]any{
			"attrs":       []any{"state", "display_name"},
			"filter":      `match(pattern, host.name)`,
			"filter_vars": map[string]any{"pattern": "web*"},
			"joins":       []any{"host.name"},
		}
		if !reflect.DeepEqual(payload, want) {
			t.Fatalf("unexpected payload %#v", payload)
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListObjects(context.Background(), "Service", "", &QueryOptions{
		Attrs:      []string{"state", "display_name"},
		Filter:     `match(pattern, host.name)`,
		FilterVars: map[string]any{"pattern": "web*"},
		Joins:      []string{"host.name"},
	})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
}

func TestListObjectsAllJoinsWinsOverJoins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeRequestBody(t, r)
		if payload["all_joins"] != "1" {
			t.Fatalf("expected all_joins flag, got %#v", payload)
		}
		if _, ok := payload["joins"]; ok {
			t.Fatalf("joins must not be sent together with all_joins: %#v", payload)
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListObjects(context.Background(), "Service", "", &QueryOptions{
		Joins:    []string{"host.name"},
		AllJoins: true,
	})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
}

func TestListObjectsPluralizesTypeNames(t *testing.T) {
	cases := map[string]string{
		"Host":         "/v1/objects/hosts",
		"CheckCommand": "/v1/objects/checkcommands",
		"Dependency":   "/v1/objects/dependencies",
	}
	for objectType, wantPath := range cases {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{"results":[]}`))
		}))
		client := newTestClient(t, server)
		if _, err := client.ListObjects(context.Background(), objectType, "", nil); err != nil {
			t.Fatalf("ListObjects(%s): %v", objectType, err)
		}
		server.Close()
		if gotPath != wantPath {
			t.Fatalf("ListObjects(%s) hit %s, want %s", objectType, gotPath, wantPath)
		}
	}
}

func TestListHostsToleratesUnknownFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{
			"type": "Host",
			"name": "Host1",
			"attrs": {
				"name": "Host1",
				"address": "127.0.0.1",
				"state": 1,
				"severity": 128,
				"flapping_threshold_high": 30,
				"some_future_attribute": {"nested": true}
			},
			"meta": {},
			"some_future_envelope_field": 42
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	hosts, err := client.ListHosts(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListHosts: %v", err)
	}
	if len(hosts) != 1 {
		t.Fatalf("expected one host, got %d", len(hosts))
	}
	if hosts[0].Name != "Host1" || hosts[0].Address != "127.0.0.1" || hosts[0].State != HostDown {
		t.Fatalf("unexpected host %+v", hosts[0])
	}
}

func TestListHostsRejectsMissingRequiredField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{
			"type": "Host",
			"name": "Host1",
			"attrs": {"name": "Host1", "address": "127.0.0.1"}
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListHosts(context.Background(), nil)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apiErr := err.(*APIError); apiErr.Field != "state" {
		t.Fatalf("expected offending field state, got %q", apiErr.Field)
	}
}

func TestQueryServiceStateScenario(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/objects/services/Host1!ping4" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"results":[{
			"type": "Service",
			"name": "Host1!ping4",
			"attrs": {"state": 0, "output": "OK"}
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	status, err := client.QueryServiceState(context.Background(), "Host1", "ping4")
	if err != nil {
		t.Fatalf("QueryServiceState: %v", err)
	}
	if status.State != ServiceOK {
		t.Fatalf("expected state OK, got %s", status.State)
	}
	if status.Output != "OK" {
		t.Fatalf("expected output OK, got %q", status.Output)
	}
}

func TestQueryServiceStateValidatesNamesLocally(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.QueryServiceState(context.Background(), "", "ping4")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apiErr := err.(*APIError); apiErr.Field != "host" {
		t.Fatalf("expected offending field host, got %q", apiErr.Field)
	}
	if calls != 0 {
		t.Fatalf("expected no request for local validation failure, got %d", calls)
	}
}

func TestCreateObjectBuildsExactPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/objects/services/Host1!custom-load" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-HTTP-Method-Override"); got != "PUT" {
			t.Fatalf("expected PUT override, got %q", got)
		}
		payload := decodeRequestBody(t, r)
		want := map[string]any{
			"attrs":     map[string]any{"check_command": "load"},
			"templates": []any{"generic-service"},
		}
		if !reflect.DeepEqual(payload, want) {
			t.Fatalf("unexpected payload %#v", payload)
		}
		w.Write([]byte(`{"results":[{"code":200,"status":"Object was created"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	status, err := client.CreateObject(context.Background(), "Service", "Host1!custom-load",
		[]string{"generic-service"}, map[string]any{"check_command": "load"})
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if status.Code != 200 || status.Status != "Object was created" {
		t.Fatalf("unexpected command status %+v", status)
	}
}

func TestModifyObjectRequiresAttrs(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ModifyObject(context.Background(), "Host", "Host1", nil)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no request, got %d", calls)
	}
}

func TestDeleteObjectSendsCascade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-HTTP-Method-Override"); got != "DELETE" {
			t.Fatalf("expected DELETE override, got %q", got)
		}
		payload := decodeRequestBody(t, r)
		if payload["cascade"] != float64(1) {
			t.Fatalf("expected cascade flag, got %#v", payload)
		}
		w.Write([]byte(`{"results":[{"code":200,"status":"Object was deleted."}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.DeleteObject(context.Background(), "Host", "Host1", "", nil, true); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
}

func TestDeleteObjectRejectsNameAndFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.DeleteObject(context.Background(), "Host", "Host1", `host.name=="Host1"`, nil, false)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHostRoundTripThroughEcho(t *testing.T) {
	original := Host{
		Name:        "Host1",
		DisplayName: "First host",
		Address:     "127.0.0.1",
		State:       HostDown,
		Groups:      []string{"linux-servers"},
		Vars:        Vars{"os": "Linux", "port": float64(22)},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attrs, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("marshal host: %v", err)
		}
		envelope := map[string]any{
			"results": []map[string]any{{
				"type":  "Host",
				"name":  original.Name,
				"attrs": json.RawMessage(attrs),
			}},
		}
		if err := json.NewEncoder(w).Encode(envelope); err != nil {
			t.Fatalf("encode envelope: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.GetHost(context.Background(), "Host1")
	if err != nil {
		t.Fatalf("GetHost: %v", err)
	}
	if !reflect.DeepEqual(*got, original) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, original)
	}
}

func TestGetServiceValidatesReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetService(context.Background(), "ping4")
	if !IsValidation(err) {
		t.Fatalf("expected validation error for bare service name, got %v", err)
	}
}

func TestGetObjectMapsEmptyResultsToNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetObject(context.Background(), "Host", "missing", nil)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
