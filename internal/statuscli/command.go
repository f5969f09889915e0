// Package statuscli implements the "status" subcommand: daemon status,
// templates, global variables, and object types.
package statuscli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/veldtix/icingactl/internal/cmdutil"
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

	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	component := fs.String("component", "", "Narrow to one status component, e.g. IcingaApplication")
	templates := fs.String("templates", "", "List templates of the given object type instead")
	templateFilter := fs.String("template-filter", "", "Filter expression over the tmpl variable")
	variables := fs.Bool("variables", false, "List global variables instead")
	types := fs.Bool("types", false, "List object types instead")
	typeName := fs.String("type", "", "Narrow the type listing to one type")

	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	switch {
	case *templates != "":
		list, err := client.ListTemplates(ctx, *templates, *templateFilter)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, tmpl := range list {
			rows = append(rows, []string{tmpl.Name, tmpl.Type})
		}
		return cmdutil.Table(deps.Out, []string{"TEMPLATE", "TYPE"}, rows)

	case *variables:
		list, err := client.ListVariables(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, v := range list {
			rows = append(rows, []string{v.Name, v.Type, fmt.Sprintf("%v", v.Value)})
		}
		return cmdutil.Table(deps.Out, []string{"NAME", "TYPE", "VALUE"}, rows)

	case *types:
		list, err := client.ListTypes(ctx, *typeName)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, desc := range list {
			abstract := ""
			if desc.Abstract {
				abstract = "abstract"
			}
			rows = append(rows, []string{desc.Name, desc.PluralName, desc.BaseType, abstract})
		}
		return cmdutil.Table(deps.Out, []string{"NAME", "PLURAL", "BASE", ""}, rows)

	default:
		entries, err := client.QueryStatus(ctx, *component)
		if err != nil {
			return err
		}
		return cmdutil.WriteJSON(deps.Out, entries)
	}
}
