// Package objectcli implements the "objects" subcommand: querying and
// managing configuration objects through the API.
package objectcli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/veldtix/icingactl/internal/cmdutil"
	"github.com/veldtix/icingactl/pkg/icinga2"
)

type Dependencies struct {
	Out    io.Writer
	Logger *log.Logger
}

func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}

	if len(args) == 0 {
		return fmt.Errorf("objects: missing verb (list, get, create, modify, delete, service-state)")
	}

	verb := args[0]
	rest := args[1:]
	switch verb {
	case "list":
		return runList(ctx, rest, deps)
	case "get":
		return runGet(ctx, rest, deps)
	case "create":
		return runCreate(ctx, rest, deps)
	case "modify":
		return runModify(ctx, rest, deps)
	case "delete":
		return runDelete(ctx, rest, deps)
	case "service-state":
		return runServiceState(ctx, rest, deps)
	default:
		return fmt.Errorf("objects: unknown verb %q", verb)
	}
}

func runList(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects list", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", "", "Object type, e.g. Host or Service")
	filter := fs.String("filter", "", "Filter expression")
	filterVars := fs.String("filter-vars", "", "Filter variables as a JSON object")
	attrs := fs.String("attrs", "", "Comma-separated attributes to return")
	joins := fs.String("joins", "", "Comma-separated joins to include")
	allJoins := fs.Bool("all-joins", false, "Include all joins")
	asJSON := fs.Bool("json", false, "Print raw JSON instead of a table")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectType == "" {
		return fmt.Errorf("objects list: --type is required")
	}

	opts := icinga2.QueryOptions{
		Attrs:    splitList(*attrs),
		Filter:   *filter,
		Joins:    splitList(*joins),
		AllJoins: *allJoins,
	}
	if *filterVars != "" {
		if err := json.Unmarshal([]byte(*filterVars), &opts.FilterVars); err != nil {
			return fmt.Errorf("objects list: parse --filter-vars: %w", err)
		}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	objects, err := client.ListObjects(ctx, *objectType, "", &opts)
	if err != nil {
		return err
	}

	if *asJSON {
		return cmdutil.WriteJSON(deps.Out, objects)
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		rows = append(rows, []string{obj.Name, obj.Type})
	}
	return cmdutil.Table(deps.Out, []string{"NAME", "TYPE"}, rows)
}

func runGet(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects get", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", "", "Object type, e.g. Host or Service")
	name := fs.String("name", "", "Full object name")
	attrs := fs.String("attrs", "", "Comma-separated attributes to return")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectType == "" || *name == "" {
		return fmt.Errorf("objects get: --type and --name are required")
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	object, err := client.GetObject(ctx, *objectType, *name, &icinga2.QueryOptions{Attrs: splitList(*attrs)})
	if err != nil {
		return err
	}
	return cmdutil.WriteJSON(deps.Out, object)
}

func runCreate(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects create", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", "", "Object type, e.g. Host or Service")
	name := fs.String("name", "", "Full object name")
	attrs := fs.String("attrs", "", "Object attributes as a JSON object")
	templates := fs.String("templates", "", "Comma-separated templates to import")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectType == "" || *name == "" {
		return fmt.Errorf("objects create: --type and --name are required")
	}

	attrMap, err := parseAttrs(*attrs)
	if err != nil {
		return fmt.Errorf("objects create: %w", err)
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.CreateObject(ctx, *objectType, *name, splitList(*templates), attrMap)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s\n", status.Status)
	return nil
}

func runModify(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects modify", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", "", "Object type, e.g. Host or Service")
	name := fs.String("name", "", "Full object name")
	attrs := fs.String("attrs", "", "Attributes to change as a JSON object")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectType == "" || *name == "" {
		return fmt.Errorf("objects modify: --type and --name are required")
	}

	attrMap, err := parseAttrs(*attrs)
	if err != nil {
		return fmt.Errorf("objects modify: %w", err)
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.ModifyObject(ctx, *objectType, *name, attrMap)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s\n", status.Status)
	return nil
}

func runDelete(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects delete", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	objectType := fs.String("type", "", "Object type, e.g. Host or Service")
	name := fs.String("name", "", "Full object name")
	filter := fs.String("filter", "", "Filter expression selecting objects to delete")
	filterVars := fs.String("filter-vars", "", "Filter variables as a JSON object")
	cascade := fs.Bool("cascade", false, "Also delete dependent objects")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectType == "" {
		return fmt.Errorf("objects delete: --type is required")
	}

	var vars map[string]any
	if *filterVars != "" {
		if err := json.Unmarshal([]byte(*filterVars), &vars); err != nil {
			return fmt.Errorf("objects delete: parse --filter-vars: %w", err)
		}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.DeleteObject(ctx, *objectType, *name, *filter, vars, *cascade)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s\n", status.Status)
	return nil
}

func runServiceState(ctx context.Context, args []string, deps Dependencies) error {
	fs := flag.NewFlagSet("objects service-state", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	host := fs.String("host", "", "Host name")
	service := fs.String("service", "", "Service short name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	status, err := client.QueryServiceState(ctx, *host, *service)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s: %s\n", status.State, status.Output)
	return nil
}

func parseAttrs(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("parse --attrs: %w", err)
	}
	return attrs, nil
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
