package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veldtix/icingactl/internal/actioncli"
	"github.com/veldtix/icingactl/internal/checkcli"
	"github.com/veldtix/icingactl/internal/eventcli"
	"github.com/veldtix/icingactl/internal/logging"
	"github.com/veldtix/icingactl/internal/objectcli"
	"github.com/veldtix/icingactl/internal/statuscli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger := logging.New()

	cmd := os.Args[1]
	args := os.Args[2:]
	var err error

	switch cmd {
	case "objects":
		err = objectcli.Run(ctx, args, objectcli.Dependencies{Logger: logger})
	case "actions":
		err = actioncli.Run(ctx, args, actioncli.Dependencies{Logger: logger})
	case "status":
		err = statuscli.Run(ctx, args, statuscli.Dependencies{Logger: logger})
	case "events":
		err = eventcli.Run(ctx, args, eventcli.Dependencies{Logger: logger})
	case "check":
		err = checkcli.Run(ctx, args, checkcli.Dependencies{Logger: logger})
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("icingactl - Icinga2 API command line client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  icingactl objects list|get|create|modify|delete|service-state [flags]")
	fmt.Println("  icingactl actions check-result|reschedule|acknowledge|remove-ack|notify|comment|remove-comment|downtime|remove-downtime [flags]")
	fmt.Println("  icingactl status [--component name] [--templates type] [--variables] [--types]")
	fmt.Println("  icingactl events --types CheckResult,StateChange [--filter expr] [--queue name]")
	fmt.Println("  icingactl check --file checks.yaml [--concurrency n] [--rps n]")
	fmt.Println()
	fmt.Println("Connection flags (every subcommand): --config, --server, --user, --password, --cert, --key, --ca, --timeout")
}
