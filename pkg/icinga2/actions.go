package icinga2

import (
	"context"
	"strings"
)

// Target addresses the host or service an action applies to, either directly
// by name or through a filter expression. Name and filter addressing are
// mutually exclusive; filter addressing needs an explicit object type.
type Target struct {
	Type       string // "Host" or "Service"; derived from Host/Service when empty
	Host       string
	Service    string
	Filter     string
	FilterVars map[string]any
}

// payload validates the target and returns the payload keys shared by all
// actions: "type" plus one of "host", "service", or "filter".
func (t Target) payload() (map[string]any, error) {
	byName := t.Host != "" || t.Service != ""
	if !byName && t.Filter == "" {
		return nil, newValidationError("host", "either a host/service name or a filter is required")
	}
	if byName && t.Filter != "" {
		return nil, newValidationError("filter", "name and filter are mutually exclusive")
	}
	if t.Service != "" && t.Host == "" {
		return nil, newValidationError("host", "a service reference requires the host name")
	}

	payload := map[string]any{}
	switch {
	case t.Service != "":
		payload["type"] = "Service"
		payload["service"] = t.Host + "!" + t.Service
	case t.Host != "":
		payload["type"] = "Host"
		payload["host"] = t.Host
	default:
		if t.Type != "Host" && t.Type != "Service" {
			return nil, newValidationError("type", `filter addressing requires type "Host" or "Service"`)
		}
		payload["type"] = t.Type
		payload["filter"] = t.Filter
		if len(t.FilterVars) > 0 {
			payload["filter_vars"] = t.FilterVars
		}
	}
	return payload, nil
}

// CheckResultRequest carries the parameters of a process-check-result call.
type CheckResultRequest struct {
	Target
	// ExitStatus is 0-3 for services and 0-1 for hosts.
	ExitStatus int
	// PluginOutput is the main plugin output without performance data.
	PluginOutput    string
	PerformanceData []string
	CheckCommand    CommandLine
	CheckSource     string
	ExecutionStart  Timestamp
	ExecutionEnd    Timestamp
	// TTL is the freshness window for passive results, in seconds.
	TTL int
}

// ProcessCheckResult submits a check result for a host or service.
func (c *Client) ProcessCheckResult(ctx context.Context, req CheckResultRequest) (*CommandStatus, error) {
	payload, err := req.Target.payload()
	if err != nil {
		return nil, err
	}
	if req.PluginOutput == "" {
		return nil, newValidationError("plugin_output", "plugin output must not be empty")
	}
	maxStatus := 3
	if payload["type"] == "Host" {
		maxStatus = 1
	}
	if req.ExitStatus < 0 || req.ExitStatus > maxStatus {
		return nil, newValidationError("exit_status", "exit status out of range")
	}

	payload["exit_status"] = req.ExitStatus
	payload["plugin_output"] = req.PluginOutput
	if len(req.PerformanceData) > 0 {
		payload["performance_data"] = req.PerformanceData
	}
	if len(req.CheckCommand) > 0 {
		payload["check_command"] = req.CheckCommand
	}
	if req.CheckSource != "" {
		payload["check_source"] = req.CheckSource
	}
	if !req.ExecutionStart.IsZero() {
		payload["execution_start"] = unixSeconds(req.ExecutionStart)
	}
	if !req.ExecutionEnd.IsZero() {
		payload["execution_end"] = unixSeconds(req.ExecutionEnd)
	}
	if req.TTL > 0 {
		payload["ttl"] = req.TTL
	}

	return c.commandCall(ctx, "POST", "actions/process-check-result", payload)
}

// RescheduleCheck forces the next check of the addressed objects.
func (c *Client) RescheduleCheck(ctx context.Context, target Target, nextCheck Timestamp, force bool) (*CommandStatus, error) {
	payload, err := target.payload()
	if err != nil {
		return nil, err
	}
	payload["force_check"] = force
	if !nextCheck.IsZero() {
		payload["next_check"] = unixSeconds(nextCheck)
	}
	return c.commandCall(ctx, "POST", "actions/reschedule-check", payload)
}

// NotificationRequest carries the parameters of a send-custom-notification
// call.
type NotificationRequest struct {
	Target
	Author  string
	Comment string
	// Force sends the notification regardless of downtimes and notification
	// settings.
	Force bool
}

// SendCustomNotification triggers a custom notification for the addressed
// objects.
func (c *Client) SendCustomNotification(ctx context.Context, req NotificationRequest) (*CommandStatus, error) {
	payload, err := req.Target.payload()
	if err != nil {
		return nil, err
	}
	if req.Author == "" {
		return nil, newValidationError("author", "author must not be empty")
	}
	if req.Comment == "" {
		return nil, newValidationError("comment", "comment must not be empty")
	}
	payload["author"] = req.Author
	payload["comment"] = req.Comment
	payload["force"] = req.Force
	return c.commandCall(ctx, "POST", "actions/send-custom-notification", payload)
}

// DelayNotification postpones notifications for the addressed objects until
// the given time.
func (c *Client) DelayNotification(ctx context.Context, target Target, until Timestamp) (*CommandStatus, error) {
	payload, err := target.payload()
	if err != nil {
		return nil, err
	}
	if until.IsZero() {
		return nil, newValidationError("timestamp", "delay timestamp must be given")
	}
	payload["timestamp"] = unixSeconds(until)
	return c.commandCall(ctx, "POST", "actions/delay-notification", payload)
}

// AcknowledgementRequest carries the parameters of an acknowledge-problem
// call.
type AcknowledgementRequest struct {
	Target
	Author  string
	Comment string
	// Expiry removes the acknowledgement at the given time.
	Expiry Timestamp
	// Sticky keeps the acknowledgement until full recovery.
	Sticky bool
	// Notify sends an acknowledgement notification.
	Notify bool
	// Persistent keeps the comment after the acknowledgement clears.
	Persistent bool
}

// AcknowledgeProblem acknowledges the current problem of the addressed
// objects.
func (c *Client) AcknowledgeProblem(ctx context.Context, req AcknowledgementRequest) (*CommandStatus, error) {
	payload, err := req.Target.payload()
	if err != nil {
		return nil, err
	}
	if req.Author == "" {
		return nil, newValidationError("author", "author must not be empty")
	}
	if req.Comment == "" {
		return nil, newValidationError("comment", "comment must not be empty")
	}
	payload["author"] = req.Author
	payload["comment"] = req.Comment
	if !req.Expiry.IsZero() {
		payload["expiry"] = unixSeconds(req.Expiry)
	}
	if req.Sticky {
		payload["sticky"] = true
	}
	if req.Notify {
		payload["notify"] = true
	}
	if req.Persistent {
		payload["persistent"] = true
	}
	return c.commandCall(ctx, "POST", "actions/acknowledge-problem", payload)
}

// RemoveAcknowledgement clears acknowledgements on the addressed objects.
func (c *Client) RemoveAcknowledgement(ctx context.Context, target Target) (*CommandStatus, error) {
	payload, err := target.payload()
	if err != nil {
		return nil, err
	}
	return c.commandCall(ctx, "POST", "actions/remove-acknowledgement", payload)
}

// CommentRequest carries the parameters of an add-comment call.
type CommentRequest struct {
	Target
	Author  string
	Comment string
}

// AddComment attaches a comment to the addressed objects.
func (c *Client) AddComment(ctx context.Context, req CommentRequest) (*CommandStatus, error) {
	payload, err := req.Target.payload()
	if err != nil {
		return nil, err
	}
	if req.Author == "" {
		return nil, newValidationError("author", "author must not be empty")
	}
	if req.Comment == "" {
		return nil, newValidationError("comment", "comment must not be empty")
	}
	payload["author"] = req.Author
	payload["comment"] = req.Comment
	return c.commandCall(ctx, "POST", "actions/add-comment", payload)
}

// RemoveComment removes a comment by its full name (objectType "Comment"),
// or every comment on the hosts or services matched by a filter (objectType
// "Host" or "Service").
func (c *Client) RemoveComment(ctx context.Context, objectType, name, filter string, filterVars map[string]any) (*CommandStatus, error) {
	payload, err := namedRemovalPayload(objectType, "Comment", name, filter, filterVars)
	if err != nil {
		return nil, err
	}
	return c.commandCall(ctx, "POST", "actions/remove-comment", payload)
}

// DowntimeRequest carries the parameters of a schedule-downtime call.
type DowntimeRequest struct {
	Target
	Author  string
	Comment string
	Start   Timestamp
	End     Timestamp
	// Duration in seconds; required for flexible downtimes.
	Duration int
	// Fixed downtimes span exactly start to end.
	Fixed bool
	// AllServices also schedules downtimes for all services of matched hosts.
	AllServices bool
	TriggerName string
	// ChildOptions schedules child downtimes; one of "DowntimeNoChildren",
	// "DowntimeTriggeredChildren", "DowntimeNonTriggeredChildren".
	ChildOptions string
}

// ScheduleDowntime schedules a downtime for the addressed objects.
func (c *Client) ScheduleDowntime(ctx context.Context, req DowntimeRequest) (*CommandStatus, error) {
	payload, err := req.Target.payload()
	if err != nil {
		return nil, err
	}
	if req.Author == "" {
		return nil, newValidationError("author", "author must not be empty")
	}
	if req.Comment == "" {
		return nil, newValidationError("comment", "comment must not be empty")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, newValidationError("start_time", "start and end time must be given")
	}
	if !req.End.After(req.Start.Time) {
		return nil, newValidationError("end_time", "end time must be after start time")
	}

	payload["author"] = req.Author
	payload["comment"] = req.Comment
	payload["start_time"] = unixSeconds(req.Start)
	payload["end_time"] = unixSeconds(req.End)
	payload["duration"] = req.Duration
	if req.Fixed {
		payload["fixed"] = true
	}
	if req.AllServices {
		payload["all_services"] = true
	}
	if req.TriggerName != "" {
		payload["trigger_name"] = req.TriggerName
	}
	if req.ChildOptions != "" {
		payload["child_options"] = req.ChildOptions
	}
	return c.commandCall(ctx, "POST", "actions/schedule-downtime", payload)
}

// RemoveDowntime removes a downtime by its full name (objectType
// "Downtime"), or every downtime on the hosts or services matched by a
// filter (objectType "Host" or "Service").
func (c *Client) RemoveDowntime(ctx context.Context, objectType, name, filter string, filterVars map[string]any) (*CommandStatus, error) {
	payload, err := namedRemovalPayload(objectType, "Downtime", name, filter, filterVars)
	if err != nil {
		return nil, err
	}
	return c.commandCall(ctx, "POST", "actions/remove-downtime", payload)
}

// GenerateTicket generates a PKI ticket for CSR auto-signing.
func (c *Client) GenerateTicket(ctx context.Context, cn string) (*CommandStatus, error) {
	if cn == "" {
		return nil, newValidationError("cn", "common name must not be empty")
	}
	return c.commandCall(ctx, "POST", "actions/generate-ticket", map[string]any{"cn": cn})
}

// ShutdownProcess asks the daemon to shut down. The daemon acknowledges the
// request before terminating, so the call returns normally.
func (c *Client) ShutdownProcess(ctx context.Context) (*CommandStatus, error) {
	return c.commandCall(ctx, "POST", "actions/shutdown-process", map[string]any{})
}

// RestartProcess asks the daemon to restart itself.
func (c *Client) RestartProcess(ctx context.Context) (*CommandStatus, error) {
	return c.commandCall(ctx, "POST", "actions/restart-process", map[string]any{})
}

// namedRemovalPayload builds the payload shared by remove-comment and
// remove-downtime: the object addressed by full name, or a filter. The name
// form requires objectType to be the removed type itself (ownType), the
// filter form requires "Host" or "Service".
func namedRemovalPayload(objectType, ownType, name, filter string, filterVars map[string]any) (map[string]any, error) {
	if name == "" && filter == "" {
		return nil, newValidationError("name", "either name or filter must be given")
	}
	if name != "" && filter != "" {
		return nil, newValidationError("filter", "name and filter are mutually exclusive")
	}

	payload := map[string]any{"type": objectType}
	if name != "" {
		if objectType != ownType {
			return nil, newValidationError("type", "removal by name requires type "+ownType)
		}
		payload[strings.ToLower(objectType)] = name
		return payload, nil
	}

	if objectType != "Host" && objectType != "Service" {
		return nil, newValidationError("type", `removal by filter requires type "Host" or "Service"`)
	}
	payload["filter"] = filter
	if len(filterVars) > 0 {
		payload["filter_vars"] = filterVars
	}
	return payload, nil
}

// unixSeconds converts a Timestamp into the float seconds encoding used by
// action payloads.
func unixSeconds(t Timestamp) float64 {
	return float64(t.UnixNano()) / 1e9
}
