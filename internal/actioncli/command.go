// Package actioncli implements the "actions" subcommand: check results,
// acknowledgements, notifications, comments, and downtimes.
package actioncli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/veldtix/icingactl/internal/cmdutil"
	"github.com/veldtix/icingactl/pkg/icinga2"
)

type Dependencies struct {
	Out    io.Writer
	Logger *log.Logger
	Now    func() time.Time
}

func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if len(args) == 0 {
		return fmt.Errorf("actions: missing verb (check-result, reschedule, acknowledge, remove-ack, notify, comment, remove-comment, downtime, remove-downtime)")
	}

	verb := args[0]
	rest := args[1:]
	switch verb {
	case "check-result":
		return runCheckResult(ctx, rest, deps)
	case "reschedule":
		return runReschedule(ctx, rest, deps)
	case "acknowledge":
		return runAcknowledge(ctx, rest, deps)
	case "remove-ack":
		return runRemoveAck(ctx, rest, deps)
	case "notify":
		return runNotify(ctx, rest, deps)
	case "comment":
		return runComment(ctx, rest, deps)
	case "remove-comment":
		return runRemoveComment(ctx, rest, deps)
	case "downtime":
		return runDowntime(ctx, rest, deps)
	case "remove-downtime":
		return runRemoveDowntime(ctx, rest, deps)
	default:
		return fmt.Errorf("actions: unknown verb %q", verb)
	}
}

// targetFlags binds the flags addressing a host, service, or filter.
type targetFlags struct {
	objectType string
	host       string
	service    string
	filter     string
	filterVars string
}

func (t *targetFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&t.objectType, "type", "", `Object type for filter addressing ("Host" or "Service")`)
	fs.StringVar(&t.host, "host", "", "Host name")
	fs.StringVar(&t.service, "service", "", "Service short name (requires --host)")
	fs.StringVar(&t.filter, "filter", "", "Filter expression")
	fs.StringVar(&t.filterVars, "filter-vars", "", "Filter variables as a JSON object")
}

func (t *targetFlags) target() (icinga2.Target, error) {
	target := icinga2.Target{
		Type:    t.objectType,
		Host:    t.host,
		Service: t.service,
		Filter:  t.filter,
	}
	if t.filterVars != "" {
		if err := json.Unmarshal([]byte(t.filterVars), &target.FilterVars); err != nil {
			return icinga2.Target{}, fmt.Errorf("parse --filter-vars: %w", err)
		}
	}
	return target, nil
}

func printStatus(out io.Writer, status *icinga2.CommandStatus) {
	fmt.Fprintf(out, "%s\n", status.Status)
}

func runCheckResult(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions check-result", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	exitStatus := fs.Int("exit-status", 0, "Check exit status (0-3 for services, 0-1 for hosts)")
	output := fs.String("output", "", "Plugin output")
	perfdata := fs.String("perfdata", "", "Comma-separated performance data values")
	source := fs.String("source", "", "Reported check source")
	ttl := fs.Int("ttl", 0, "Freshness window in seconds")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.ProcessCheckResult(ctx, icinga2.CheckResultRequest{
		Target:          target,
		ExitStatus:      *exitStatus,
		PluginOutput:    *output,
		PerformanceData: splitList(*perfdata),
		CheckSource:     *source,
		TTL:             *ttl,
	})
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runReschedule(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions reschedule", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	force := fs.Bool("force", false, "Check even inside downtimes and check periods")
	in := fs.Duration("in", 0, "Schedule the check this far in the future (defaults to now)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	var nextCheck icinga2.Timestamp
	if *in > 0 {
		nextCheck = icinga2.Timestamp{Time: deps.Now().Add(*in)}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.RescheduleCheck(ctx, target, nextCheck, *force)
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runAcknowledge(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions acknowledge", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	author := fs.String("author", "", "Acknowledgement author")
	comment := fs.String("comment", "", "Acknowledgement comment")
	expireIn := fs.Duration("expire-in", 0, "Remove the acknowledgement after this duration")
	sticky := fs.Bool("sticky", false, "Keep the acknowledgement until full recovery")
	notify := fs.Bool("notify", false, "Send an acknowledgement notification")
	persistent := fs.Bool("persistent", false, "Keep the comment after the acknowledgement clears")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	var expiry icinga2.Timestamp
	if *expireIn > 0 {
		expiry = icinga2.Timestamp{Time: deps.Now().Add(*expireIn)}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.AcknowledgeProblem(ctx, icinga2.AcknowledgementRequest{
		Target:     target,
		Author:     *author,
		Comment:    *comment,
		Expiry:     expiry,
		Sticky:     *sticky,
		Notify:     *notify,
		Persistent: *persistent,
	})
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runRemoveAck(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions remove-ack", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.RemoveAcknowledgement(ctx, target)
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runNotify(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions notify", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	author := fs.String("author", "", "Notification author")
	comment := fs.String("comment", "", "Notification text")
	force := fs.Bool("force", false, "Ignore downtimes and notification settings")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.SendCustomNotification(ctx, icinga2.NotificationRequest{
		Target:  target,
		Author:  *author,
		Comment: *comment,
		Force:   *force,
	})
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runComment(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions comment", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	author := fs.String("author", "", "Comment author")
	comment := fs.String("comment", "", "Comment text")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.AddComment(ctx, icinga2.CommentRequest{
		Target:  target,
		Author:  *author,
		Comment: *comment,
	})
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runRemoveComment(ctx context.Context, args []string, deps Dependencies) error {
	return runNamedRemoval(ctx, args, deps, "remove-comment", "Comment",
		func(ctx context.Context, client *icinga2.Client, objectType, name, filter string, vars map[string]any) (*icinga2.CommandStatus, error) {
			return client.RemoveComment(ctx, objectType, name, filter, vars)
		})
}

func runRemoveDowntime(ctx context.Context, args []string, deps Dependencies) error {
	return runNamedRemoval(ctx, args, deps, "remove-downtime", "Downtime",
		func(ctx context.Context, client *icinga2.Client, objectType, name, filter string, vars map[string]any) (*icinga2.CommandStatus, error) {
			return client.RemoveDowntime(ctx, objectType, name, filter, vars)
		})
}

func runNamedRemoval(ctx context.Context, args []string, deps Dependencies, verb, ownType string,
	remove func(context.Context, *icinga2.Client, string, string, string, map[string]any) (*icinga2.CommandStatus, error)) error {
	fs := flag.NewFlagSet("actions "+verb, flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", ownType, `Addressed type: the removed type itself, "Host", or "Service"`)
	name := fs.String("name", "", "Full name of the object to remove")
	filter := fs.String("filter", "", "Filter selecting hosts or services to clear")
	filterVars := fs.String("filter-vars", "", "Filter variables as a JSON object")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var vars map[string]any
	if *filterVars != "" {
		if err := json.Unmarshal([]byte(*filterVars), &vars); err != nil {
			return fmt.Errorf("actions %s: parse --filter-vars: %w", verb, err)
		}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := remove(ctx, client, *objectType, *name, *filter, vars)
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func runDowntime(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("actions downtime", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	var tf targetFlags
	tf.bind(fs)
	author := fs.String("author", "", "Downtime author")
	comment := fs.String("comment", "", "Downtime comment")
	start := fs.String("start", "", "Start time (RFC 3339, defaults to now)")
	duration := fs.Duration("duration", time.Hour, "Downtime length")
	fixed := fs.Bool("fixed", false, "Fixed downtime spanning exactly start to end")
	allServices := fs.Bool("all-services", false, "Also schedule downtimes for all services of matched hosts")
	childOptions := fs.String("child-options", "", "Child downtime scheduling mode")

	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := tf.target()
	if err != nil {
		return err
	}

	startTime := deps.Now()
	if *start != "" {
		parsed, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("actions downtime: parse --start: %w", err)
		}
		startTime = parsed
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.ScheduleDowntime(ctx, icinga2.DowntimeRequest{
		Target:       target,
		Author:       *author,
		Comment:      *comment,
		Start:        icinga2.Timestamp{Time: startTime},
		End:          icinga2.Timestamp{Time: startTime.Add(*duration)},
		Duration:     int(duration.Seconds()),
		Fixed:        *fixed,
		AllServices:  *allServices,
		ChildOptions: *childOptions,
	})
	if err != nil {
		return err
	}
	printStatus(deps.Out, status)
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
