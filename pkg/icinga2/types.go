package icinga2

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ServiceState is the check state of a service as encoded by the API.
type ServiceState int

const (
	ServiceOK       ServiceState = 0
	ServiceWarning  ServiceState = 1
	ServiceCritical ServiceState = 2
	ServiceUnknown  ServiceState = 3
)

func (s ServiceState) String() string {
	switch s {
	case ServiceOK:
		return "OK"
	case ServiceWarning:
		return "WARNING"
	case ServiceCritical:
		return "CRITICAL"
	case ServiceUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("ServiceState(%d)", int(s))
	}
}

// UnmarshalJSON accepts the numeric state codes the API emits. The server
// encodes them as floats in some payloads, so both 2 and 2.0 decode.
func (s *ServiceState) UnmarshalJSON(data []byte) error {
	n, err := decodeStateCode(data, 3)
	if err != nil {
		return newValidationError("state", err.Error())
	}
	*s = ServiceState(n)
	return nil
}

// HostState is the check state of a host as encoded by the API.
type HostState int

const (
	HostUp   HostState = 0
	HostDown HostState = 1
)

func (s HostState) String() string {
	switch s {
	case HostUp:
		return "UP"
	case HostDown:
		return "DOWN"
	default:
		return fmt.Sprintf("HostState(%d)", int(s))
	}
}

func (s *HostState) UnmarshalJSON(data []byte) error {
	n, err := decodeStateCode(data, 1)
	if err != nil {
		return newValidationError("state", err.Error())
	}
	*s = HostState(n)
	return nil
}

// StateType distinguishes soft from hard states.
type StateType int

const (
	StateSoft StateType = 0
	StateHard StateType = 1
)

func (s *StateType) UnmarshalJSON(data []byte) error {
	n, err := decodeStateCode(data, 1)
	if err != nil {
		return newValidationError("state_type", err.Error())
	}
	*s = StateType(n)
	return nil
}

func decodeStateCode(data []byte, max int) (int, error) {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("expected numeric code, got %s", data)
	}
	n := int(f)
	if float64(n) != f || n < 0 || n > max {
		return 0, fmt.Errorf("code %s out of range 0..%d", data, max)
	}
	return n, nil
}

// Timestamp wraps a time.Time that the API encodes as float Unix seconds.
// The zero value encodes as 0 and means "never".
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	secs := float64(t.UnixNano()) / float64(time.Second)
	return json.Marshal(secs)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("timestamp: expected float seconds, got %s", data)
	}
	if secs == 0 {
		t.Time = time.Time{}
		return nil
	}
	sec, frac := math.Modf(secs)
	t.Time = time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
	return nil
}

// CommandLine is a check command as reported by the API, which encodes it
// either as a single string or as an argv-style array.
type CommandLine []string

func (c *CommandLine) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = CommandLine{single}
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("command: expected string or string array, got %s", data)
	}
	*c = CommandLine(parts)
	return nil
}

func (c CommandLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(c))
}

// Vars holds an object's custom variables. Values stay loose at the wire
// boundary; the typed accessors are the supported way to read them.
type Vars map[string]any

// String returns the value for key if it is a string.
func (v Vars) String(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}

// Bool returns the value for key if it is a boolean.
func (v Vars) Bool(key string) (bool, bool) {
	b, ok := v[key].(bool)
	return b, ok
}

// Float returns the value for key if it is numeric.
func (v Vars) Float(key string) (float64, bool) {
	f, ok := v[key].(float64)
	return f, ok
}

// Int returns the value for key if it is numeric with no fractional part.
func (v Vars) Int(key string) (int64, bool) {
	f, ok := v[key].(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// CheckResult is the outcome of one check execution. Produced by the server,
// never constructed locally except through ProcessCheckResult parameters.
type CheckResult struct {
	Active          bool         `json:"active"`
	CheckSource     string       `json:"check_source,omitempty"`
	Command         CommandLine  `json:"command,omitempty"`
	ExecutionStart  Timestamp    `json:"execution_start"`
	ExecutionEnd    Timestamp    `json:"execution_end"`
	ExitStatus      int          `json:"exit_status"`
	Output          string       `json:"output"`
	PerformanceData []string     `json:"performance_data,omitempty"`
	ScheduleStart   Timestamp    `json:"schedule_start"`
	ScheduleEnd     Timestamp    `json:"schedule_end"`
	State           ServiceState `json:"state"`
	TTL             float64      `json:"ttl,omitempty"`
}

// Host mirrors the attributes of a Host object. Unknown attributes in the
// payload are ignored for forward compatibility.
type Host struct {
	Name            string       `json:"name"`
	DisplayName     string       `json:"display_name,omitempty"`
	Address         string       `json:"address,omitempty"`
	Address6        string       `json:"address6,omitempty"`
	CheckCommand    string       `json:"check_command,omitempty"`
	State           HostState    `json:"state"`
	StateType       StateType    `json:"state_type"`
	LastCheckResult *CheckResult `json:"last_check_result,omitempty"`
	LastStateChange Timestamp    `json:"last_state_change"`
	Groups          []string     `json:"groups,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	NotesURL        string       `json:"notes_url,omitempty"`
	Vars            Vars         `json:"vars,omitempty"`
	Templates       []string     `json:"templates,omitempty"`
	Acknowledgement int          `json:"acknowledgement,omitempty"`
	DowntimeDepth   int          `json:"downtime_depth,omitempty"`
}

// Service mirrors the attributes of a Service object. FullName is the
// API-level "__name" (host!service).
type Service struct {
	Name            string       `json:"name"`
	FullName        string       `json:"__name,omitempty"`
	HostName        string       `json:"host_name"`
	DisplayName     string       `json:"display_name,omitempty"`
	CheckCommand    string       `json:"check_command,omitempty"`
	State           ServiceState `json:"state"`
	StateType       StateType    `json:"state_type"`
	LastCheckResult *CheckResult `json:"last_check_result,omitempty"`
	LastStateChange Timestamp    `json:"last_state_change"`
	Groups          []string     `json:"groups,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Vars            Vars         `json:"vars,omitempty"`
	Templates       []string     `json:"templates,omitempty"`
	Acknowledgement int          `json:"acknowledgement,omitempty"`
	DowntimeDepth   int          `json:"downtime_depth,omitempty"`
}

// Notification mirrors the attributes of a Notification object.
type Notification struct {
	Name        string    `json:"name"`
	HostName    string    `json:"host_name"`
	ServiceName string    `json:"service_name,omitempty"`
	Command     string    `json:"command,omitempty"`
	Users       []string  `json:"users,omitempty"`
	UserGroups  []string  `json:"user_groups,omitempty"`
	Interval    float64   `json:"interval,omitempty"`
	NextNotify  Timestamp `json:"next_notification"`
	Vars        Vars      `json:"vars,omitempty"`
}

// Object is the generic query-result envelope for a configuration object.
// Attrs stays raw so callers can decode into the typed model for the object
// type they asked for.
type Object struct {
	Type  string                     `json:"type"`
	Name  string                     `json:"name"`
	Attrs json.RawMessage            `json:"attrs"`
	Joins map[string]json.RawMessage `json:"joins,omitempty"`
	Meta  map[string]any             `json:"meta,omitempty"`
}

// CommandStatus is one per-object result of a create/modify/delete call.
type CommandStatus struct {
	Code   int      `json:"-"`
	Status string   `json:"status"`
	Errors []string `json:"errors,omitempty"`
	Name   string   `json:"name,omitempty"`
	Type   string   `json:"type,omitempty"`
	// Package and Stage are set on config package and stage operations.
	Package string `json:"package,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// UnmarshalJSON tolerates the float encoding the server uses for codes.
func (s *CommandStatus) UnmarshalJSON(data []byte) error {
	type alias CommandStatus
	aux := struct {
		Code float64 `json:"code"`
		*alias
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Code = int(aux.Code)
	return nil
}

// requireFields checks a raw attrs payload for the presence of required
// attribute keys. Missing keys fail with a validation error naming the field.
func requireFields(raw json.RawMessage, fields ...string) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return newMalformedResponseError(0, fmt.Errorf("decode attributes: %w", err))
	}
	for _, field := range fields {
		if _, ok := attrs[field]; !ok {
			return newValidationError(field, "required attribute missing from response")
		}
	}
	return nil
}
