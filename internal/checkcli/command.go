// Package checkcli implements the "check" subcommand: it runs the check
// commands listed in a definitions file and submits the results as passive
// check results.
package checkcli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/veldtix/icingactl/internal/cmdutil"
	"github.com/veldtix/icingactl/pkg/icinga2"
)

const (
	defaultConcurrency  = 4
	defaultSubmitRPS    = 10
	defaultCheckTimeout = 30 * time.Second
)

// Definition is one check from the definitions file. An empty service means
// a host check.
type Definition struct {
	Host    string   `yaml:"host"`
	Service string   `yaml:"service"`
	Command []string `yaml:"command"`
	// TimeoutSec bounds the command, in seconds.
	TimeoutSec int    `yaml:"timeout_sec"`
	Source     string `yaml:"source"`
}

// File is the on-disk format of the check definitions file.
type File struct {
	Concurrency int          `yaml:"concurrency"`
	SubmitRPS   float64      `yaml:"submit_rps"`
	Checks      []Definition `yaml:"checks"`
}

// Result is the local outcome of one executed check.
type Result struct {
	Definition Definition
	ExitStatus int
	Output     string
	Start      time.Time
	End        time.Time
	SubmitErr  error
}

// Runner executes one check command. Tests inject a fake.
type Runner func(ctx context.Context, command []string, timeout time.Duration) (int, string, error)

// Submitter delivers one check result. Defaults to the API client.
type Submitter func(ctx context.Context, req icinga2.CheckResultRequest) (*icinga2.CommandStatus, error)

type Dependencies struct {
	Out       io.Writer
	Logger    *log.Logger
	Runner    Runner
	Submitter Submitter
	Now       func() time.Time
}

func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Runner == nil {
		deps.Runner = execRunner
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	file := fs.String("file", "", "Path to the check definitions file")
	concurrency := fs.Int("concurrency", 0, "Number of checks run in parallel")
	submitRPS := fs.Float64("rps", 0, "Cap on submitted results per second")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.Load(ctx)
	if err != nil {
		return err
	}

	path := *file
	if path == "" {
		path = cfg.Checks.File
	}
	if path == "" {
		return fmt.Errorf("check: --file is required")
	}

	defs, err := LoadFile(path)
	if err != nil {
		return err
	}
	if len(defs.Checks) == 0 {
		return fmt.Errorf("check: no checks defined in %s", path)
	}

	workers := *concurrency
	if workers <= 0 {
		workers = defs.Concurrency
	}
	if workers <= 0 {
		workers = cfg.Checks.Concurrency
	}
	if workers <= 0 {
		workers = defaultConcurrency
	}

	rps := *submitRPS
	if rps <= 0 {
		rps = defs.SubmitRPS
	}
	if rps <= 0 {
		rps = cfg.Checks.SubmitRPS
	}
	if rps <= 0 {
		rps = defaultSubmitRPS
	}

	submit := deps.Submitter
	if submit == nil {
		client, err := flags.BuildClient(ctx, deps.Logger)
		if err != nil {
			return err
		}
		submit = client.ProcessCheckResult
	}

	results, err := Execute(ctx, defs.Checks, workers, rps, deps, submit)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		ref := res.Definition.Host
		if res.Definition.Service != "" {
			ref += "!" + res.Definition.Service
		}
		if res.SubmitErr != nil {
			failed++
			fmt.Fprintf(deps.Out, "%s: exit %d, submit failed: %v\n", ref, res.ExitStatus, res.SubmitErr)
			continue
		}
		fmt.Fprintf(deps.Out, "%s: exit %d, submitted\n", ref, res.ExitStatus)
	}
	if failed > 0 {
		return fmt.Errorf("check: %d of %d results failed to submit", failed, len(results))
	}
	return nil
}

// LoadFile parses a check definitions file.
func LoadFile(path string) (File, error) {
	var defs File
	data, err := os.ReadFile(path)
	if err != nil {
		return defs, fmt.Errorf("read checks %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return defs, fmt.Errorf("parse checks %q: %w", path, err)
	}
	for i, def := range defs.Checks {
		if def.Host == "" {
			return defs, fmt.Errorf("check %d in %q: host is required", i, path)
		}
		if len(def.Command) == 0 {
			return defs, fmt.Errorf("check %d in %q: command is required", i, path)
		}
	}
	return defs, nil
}

// Execute runs the checks with bounded parallelism and submits each result,
// throttled to rps submissions per second. Execution errors become UNKNOWN
// results rather than aborting the batch; only context cancellation stops it.
func Execute(ctx context.Context, checks []Definition, workers int, rps float64, deps Dependencies, submit Submitter) ([]Result, error) {
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	results := make([]Result, len(checks))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	for i, def := range checks {
		i, def := i, def
		grp.Go(func() error {
			timeout := time.Duration(def.TimeoutSec) * time.Second
			if timeout <= 0 {
				timeout = defaultCheckTimeout
			}

			start := deps.Now()
			exitStatus, output, runErr := deps.Runner(grpCtx, def.Command, timeout)
			end := deps.Now()
			if runErr != nil {
				exitStatus = 3
				output = fmt.Sprintf("check execution failed: %v", runErr)
			}
			if def.Service == "" && exitStatus > 1 {
				// Hosts only know up and down.
				exitStatus = 1
			}

			results[i] = Result{
				Definition: def,
				ExitStatus: exitStatus,
				Output:     output,
				Start:      start,
				End:        end,
			}

			if err := limiter.Wait(grpCtx); err != nil {
				return err
			}

			source := def.Source
			if source == "" {
				source = "icingactl"
			}
			_, submitErr := submit(grpCtx, icinga2.CheckResultRequest{
				Target:         icinga2.Target{Host: def.Host, Service: def.Service},
				ExitStatus:     exitStatus,
				PluginOutput:   output,
				CheckCommand:   icinga2.CommandLine(def.Command),
				CheckSource:    source,
				ExecutionStart: icinga2.Timestamp{Time: start},
				ExecutionEnd:   icinga2.Timestamp{Time: end},
			})
			results[i].SubmitErr = submitErr
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// execRunner runs the command and maps its exit code to a check status.
// Plugins use codes 0-3; anything else counts as UNKNOWN.
func execRunner(ctx context.Context, command []string, timeout time.Duration) (int, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command[0], command[1:]...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := strings.TrimSpace(buf.String())

	if runCtx.Err() == context.DeadlineExceeded {
		return 3, "", fmt.Errorf("timed out after %s", timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 || code > 3 {
			code = 3
		}
		return code, output, nil
	}
	if err != nil {
		return 3, "", err
	}
	return 0, output, nil
}
