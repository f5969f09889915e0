package icinga2

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigPackage is one configuration package as reported by the config
// packages endpoint. Names starting with "_" belong to internal packages
// such as _api, _etc and _cluster.
type ConfigPackage struct {
	Name        string   `json:"name"`
	ActiveStage string   `json:"active-stage"`
	Stages      []string `json:"stages"`
}

// StageFile is one entry of a stage's file listing.
type StageFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StageRequest describes a new configuration stage. Files maps paths
// relative to the stage root, e.g. "zones.d/master/hosts.conf", to file
// content. The daemon validates and activates the stage and reloads unless
// told otherwise.
type StageRequest struct {
	Package string
	Files   map[string]string
	// SkipActivation uploads and validates without making the stage active.
	// Implies SkipReload.
	SkipActivation bool
	// SkipReload activates without restarting the daemon.
	SkipReload bool
}

// CreatePackage registers a new empty configuration package.
func (c *Client) CreatePackage(ctx context.Context, name string) (*CommandStatus, error) {
	if err := checkPackageName(name); err != nil {
		return nil, err
	}
	return c.commandCall(ctx, "POST", "config/packages/"+normalizeName(name), map[string]any{})
}

// CreateStage uploads a set of configuration files as a new stage of a
// package. The returned status carries the generated stage name.
func (c *Client) CreateStage(ctx context.Context, req StageRequest) (*CommandStatus, error) {
	if err := checkPackageName(req.Package); err != nil {
		return nil, err
	}
	if len(req.Files) == 0 {
		return nil, newValidationError("files", "a stage needs at least one file")
	}

	payload := map[string]any{"files": req.Files}
	if req.SkipActivation {
		// The daemon rejects reload=true on an inactive stage.
		payload["activate"] = false
		payload["reload"] = false
	} else if req.SkipReload {
		payload["reload"] = false
	}
	return c.commandCall(ctx, "POST", "config/stages/"+normalizeName(req.Package), payload)
}

// ListPackages retrieves all configuration packages with their stages.
func (c *Client) ListPackages(ctx context.Context) ([]ConfigPackage, error) {
	results, err := c.call(ctx, "GET", "config/packages", nil)
	if err != nil {
		return nil, err
	}

	packages := make([]ConfigPackage, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var pkg ConfigPackage
		if err := json.Unmarshal(raw, &pkg); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode config package: %w", err))
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// ListStageFiles lists the files and directories belonging to one stage.
func (c *Client) ListStageFiles(ctx context.Context, packageName, stageName string) ([]StageFile, error) {
	if err := checkStageRef(packageName, stageName); err != nil {
		return nil, err
	}

	results, err := c.call(ctx, "GET", "config/stages/"+normalizeName(packageName)+"/"+normalizeName(stageName), nil)
	if err != nil {
		return nil, err
	}

	files := make([]StageFile, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var file StageFile
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode stage file: %w", err))
		}
		files = append(files, file)
	}
	return files, nil
}

// FetchStageFile downloads one configuration file from a stage. relPath is
// the stage-relative path as returned by ListStageFiles. The response is the
// raw file content, not a results envelope.
func (c *Client) FetchStageFile(ctx context.Context, packageName, stageName, relPath string) (string, error) {
	if err := checkStageRef(packageName, stageName); err != nil {
		return "", err
	}
	if relPath == "" {
		return "", newValidationError("path", "file path must not be empty")
	}
	return c.fetchPlain(ctx, "config/files/"+normalizeName(packageName)+"/"+normalizeName(stageName)+"/"+escapeRelPath(relPath))
}

// StageErrors retrieves the startup log of a stage, which holds the
// validation errors of a failed activation. An empty string means the stage
// validated cleanly.
func (c *Client) StageErrors(ctx context.Context, packageName, stageName string) (string, error) {
	if err := checkStageRef(packageName, stageName); err != nil {
		return "", err
	}
	return c.fetchPlain(ctx, "config/files/"+normalizeName(packageName)+"/"+normalizeName(stageName)+"/startup.log")
}

// DeleteStage purges one stage of a configuration package.
func (c *Client) DeleteStage(ctx context.Context, packageName, stageName string) (*CommandStatus, error) {
	if err := checkStageRef(packageName, stageName); err != nil {
		return nil, err
	}
	return c.commandCall(ctx, "DELETE", "config/stages/"+normalizeName(packageName)+"/"+normalizeName(stageName), nil)
}

// DeletePackage removes a configuration package including all its stages.
func (c *Client) DeletePackage(ctx context.Context, name string) (*CommandStatus, error) {
	if name == "" {
		return nil, newValidationError("package", "package name must not be empty")
	}
	return c.commandCall(ctx, "DELETE", "config/packages/"+normalizeName(name), nil)
}

// fetchPlain executes a GET whose successful response is a plain text body
// rather than a results envelope.
func (c *Client) fetchPlain(ctx context.Context, path string) (string, error) {
	status, raw, err := c.Execute(ctx, "GET", path, nil, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", c.remoteError(status, raw)
	}
	return string(raw), nil
}

func checkPackageName(name string) error {
	if name == "" {
		return newValidationError("package", "package name must not be empty")
	}
	if strings.HasPrefix(name, "_") {
		return newValidationError("package", "package names starting with _ are reserved for internal packages")
	}
	return nil
}

func checkStageRef(packageName, stageName string) error {
	if packageName == "" {
		return newValidationError("package", "package name must not be empty")
	}
	if stageName == "" {
		return newValidationError("stage", "stage name must not be empty")
	}
	return nil
}

// escapeRelPath escapes each segment of a stage-relative path while keeping
// the separators intact.
func escapeRelPath(relPath string) string {
	segments := strings.Split(relPath, "/")
	for i, segment := range segments {
		segments[i] = normalizeName(segment)
	}
	return strings.Join(segments, "/")
}
