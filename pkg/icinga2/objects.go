package icinga2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// QueryOptions narrow an object query. All fields are optional.
type QueryOptions struct {
	// Attrs limits which attributes the server returns.
	Attrs []string
	// Filter is a filter expression in the API's filter language.
	Filter string
	// FilterVars are variables referenced by the filter expression.
	FilterVars map[string]any
	// Joins requests the named joined objects; AllJoins requests every
	// supported join.
	Joins    []string
	AllJoins bool
}

// pluralTypeName maps an object type name to its URL path segment, e.g.
// "CheckCommand" to "checkcommands". The contract fixes the one irregular
// plural.
func pluralTypeName(objectType string) string {
	plural := strings.ToLower(objectType) + "s"
	if plural == "dependencys" {
		return "dependencies"
	}
	return plural
}

func (o *QueryOptions) payload() map[string]any {
	payload := map[string]any{}
	if o == nil {
		return payload
	}
	if len(o.Attrs) > 0 {
		payload["attrs"] = o.Attrs
	}
	if o.Filter != "" {
		payload["filter"] = o.Filter
	}
	if len(o.FilterVars) > 0 {
		payload["filter_vars"] = o.FilterVars
	}
	if o.AllJoins {
		payload["all_joins"] = "1"
	} else if len(o.Joins) > 0 {
		payload["joins"] = o.Joins
	}
	return payload
}

// ListObjects queries configuration objects of the given type, optionally
// restricted to a single name.
func (c *Client) ListObjects(ctx context.Context, objectType, name string, opts *QueryOptions) ([]Object, error) {
	if objectType == "" {
		return nil, newValidationError("object_type", "object type must not be empty")
	}

	path := "objects/" + pluralTypeName(objectType)
	if name != "" {
		path += "/" + normalizeName(name)
	}

	results, err := c.call(ctx, "GET", path, opts.payload())
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(results))
	for _, raw := range results {
		var obj Object
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode object: %w", err))
		}
		if obj.Type == "" {
			return nil, newValidationError("type", "required attribute missing from response")
		}
		if obj.Name == "" {
			return nil, newValidationError("name", "required attribute missing from response")
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// GetObject fetches a single configuration object by full name.
func (c *Client) GetObject(ctx context.Context, objectType, name string, opts *QueryOptions) (*Object, error) {
	if name == "" {
		return nil, newValidationError("name", "object name must not be empty")
	}
	objects, err := c.ListObjects(ctx, objectType, name, opts)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("no %s object named %q", objectType, name)}
	}
	return &objects[0], nil
}

// CreateObject creates a configuration object from templates and attributes.
// At least one of templates and attrs must be given or the server rejects
// the object.
func (c *Client) CreateObject(ctx context.Context, objectType, name string, templates []string, attrs map[string]any) (*CommandStatus, error) {
	if objectType == "" {
		return nil, newValidationError("object_type", "object type must not be empty")
	}
	if name == "" {
		return nil, newValidationError("name", "object name must not be empty")
	}

	payload := map[string]any{}
	if len(attrs) > 0 {
		payload["attrs"] = attrs
	}
	if len(templates) > 0 {
		payload["templates"] = templates
	}

	path := "objects/" + pluralTypeName(objectType) + "/" + normalizeName(name)
	return c.commandCall(ctx, "PUT", path, payload)
}

// ModifyObject updates attributes of an existing configuration object.
func (c *Client) ModifyObject(ctx context.Context, objectType, name string, attrs map[string]any) (*CommandStatus, error) {
	if objectType == "" {
		return nil, newValidationError("object_type", "object type must not be empty")
	}
	if name == "" {
		return nil, newValidationError("name", "object name must not be empty")
	}
	if len(attrs) == 0 {
		return nil, newValidationError("attrs", "at least one attribute must be given")
	}

	path := "objects/" + pluralTypeName(objectType) + "/" + normalizeName(name)
	return c.commandCall(ctx, "POST", path, map[string]any{"attrs": attrs})
}

// DeleteObject removes a configuration object addressed by name or by a
// filter expression; exactly one of the two must be given. Cascade also
// removes objects depending on the deleted ones.
func (c *Client) DeleteObject(ctx context.Context, objectType, name, filter string, filterVars map[string]any, cascade bool) (*CommandStatus, error) {
	if objectType == "" {
		return nil, newValidationError("object_type", "object type must not be empty")
	}
	if name == "" && filter == "" {
		return nil, newValidationError("name", "either name or filter must be given")
	}
	if name != "" && filter != "" {
		return nil, newValidationError("filter", "name and filter are mutually exclusive")
	}

	payload := map[string]any{}
	if filter != "" {
		payload["filter"] = filter
	}
	if len(filterVars) > 0 {
		payload["filter_vars"] = filterVars
	}
	if cascade {
		payload["cascade"] = 1
	}

	path := "objects/" + pluralTypeName(objectType)
	if name != "" {
		path += "/" + normalizeName(name)
	}
	return c.commandCall(ctx, "DELETE", path, payload)
}

// commandCall is the shared decode path for mutations: one command status
// per addressed object, the first of which is returned.
func (c *Client) commandCall(ctx context.Context, method, path string, payload map[string]any) (*CommandStatus, error) {
	// A nil payload means no request body, not a JSON null.
	var body any
	if payload != nil {
		body = payload
	}
	results, err := c.call(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, newMalformedResponseError(0, fmt.Errorf("empty results for %s %s", method, path))
	}
	var status CommandStatus
	if err := json.Unmarshal(results[0], &status); err != nil {
		return nil, newMalformedResponseError(0, fmt.Errorf("decode command status: %w", err))
	}
	return &status, nil
}

// ListHosts queries Host objects and decodes them into the typed model.
func (c *Client) ListHosts(ctx context.Context, opts *QueryOptions) ([]Host, error) {
	objects, err := c.ListObjects(ctx, "Host", "", opts)
	if err != nil {
		return nil, err
	}
	hosts := make([]Host, 0, len(objects))
	for _, obj := range objects {
		host, err := decodeHost(obj)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, *host)
	}
	return hosts, nil
}

// GetHost fetches a single Host object by name.
func (c *Client) GetHost(ctx context.Context, name string) (*Host, error) {
	obj, err := c.GetObject(ctx, "Host", name, nil)
	if err != nil {
		return nil, err
	}
	return decodeHost(*obj)
}

func decodeHost(obj Object) (*Host, error) {
	if err := requireFields(obj.Attrs, "name", "state"); err != nil {
		return nil, err
	}
	var host Host
	if err := json.Unmarshal(obj.Attrs, &host); err != nil {
		return nil, malformedOrValidation("host attributes", err)
	}
	return &host, nil
}

// ListServices queries Service objects and decodes them into the typed
// model.
func (c *Client) ListServices(ctx context.Context, opts *QueryOptions) ([]Service, error) {
	objects, err := c.ListObjects(ctx, "Service", "", opts)
	if err != nil {
		return nil, err
	}
	services := make([]Service, 0, len(objects))
	for _, obj := range objects {
		service, err := decodeService(obj)
		if err != nil {
			return nil, err
		}
		services = append(services, *service)
	}
	return services, nil
}

// GetService fetches a single Service object by its full "host!service"
// name.
func (c *Client) GetService(ctx context.Context, name string) (*Service, error) {
	if _, _, err := splitServiceRef(name); err != nil {
		return nil, err
	}
	obj, err := c.GetObject(ctx, "Service", name, nil)
	if err != nil {
		return nil, err
	}
	return decodeService(*obj)
}

func decodeService(obj Object) (*Service, error) {
	if err := requireFields(obj.Attrs, "name", "host_name", "state"); err != nil {
		return nil, err
	}
	var service Service
	if err := json.Unmarshal(obj.Attrs, &service); err != nil {
		return nil, malformedOrValidation("service attributes", err)
	}
	return &service, nil
}

// ServiceStatus is the narrow state view returned by QueryServiceState.
type ServiceStatus struct {
	State  ServiceState
	Output string
}

// QueryServiceState fetches the current state and check output of one
// service of one host.
func (c *Client) QueryServiceState(ctx context.Context, hostName, serviceName string) (ServiceStatus, error) {
	var status ServiceStatus
	if hostName == "" {
		return status, newValidationError("host", "host name must not be empty")
	}
	if serviceName == "" {
		return status, newValidationError("service", "service name must not be empty")
	}

	name := hostName + "!" + serviceName
	obj, err := c.GetObject(ctx, "Service", name, &QueryOptions{Attrs: []string{"state", "last_check_result"}})
	if err != nil {
		return status, err
	}
	if err := requireFields(obj.Attrs, "state"); err != nil {
		return status, err
	}

	var attrs struct {
		State           ServiceState `json:"state"`
		Output          string       `json:"output"`
		LastCheckResult *CheckResult `json:"last_check_result"`
	}
	if err := json.Unmarshal(obj.Attrs, &attrs); err != nil {
		return status, malformedOrValidation("service state", err)
	}
	status.State = attrs.State
	status.Output = attrs.Output
	if status.Output == "" && attrs.LastCheckResult != nil {
		status.Output = attrs.LastCheckResult.Output
	}
	return status, nil
}

// splitServiceRef validates a full service name of the form "host!service".
func splitServiceRef(name string) (host, service string, err error) {
	host, service, ok := strings.Cut(name, "!")
	if !ok || host == "" || service == "" {
		return "", "", newValidationError("service", fmt.Sprintf("service reference %q must have the form host!service", name))
	}
	return host, service, nil
}

// malformedOrValidation keeps type-coercion failures (state codes out of
// range and the like) as validation errors and everything else as a
// malformed response.
func malformedOrValidation(context string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return newMalformedResponseError(0, fmt.Errorf("decode %s: %w", context, err))
}
