// Package eventcli implements the "events" subcommand: a long-lived
// subscription printing one JSON event per line.
package eventcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/time/rate"

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

	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	var flags cmdutil.ClientFlags
	flags.Bind(fs)
	types := fs.String("types", "", "Comma-separated event stream types, e.g. CheckResult,StateChange")
	queue := fs.String("queue", "", "Subscriber queue name (random when empty)")
	filter := fs.String("filter", "", "Filter expression")
	max := fs.Int("max", 0, "Stop after this many events (0 = run until interrupted)")
	maxRate := fs.Float64("max-rate", 0, "Cap on printed events per second (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *types == "" {
		return fmt.Errorf("events: --types is required")
	}

	var streamTypes []icinga2.EventStreamType
	for _, part := range strings.Split(*types, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			streamTypes = append(streamTypes, icinga2.EventStreamType(trimmed))
		}
	}

	client, err := flags.BuildClient(ctx, deps.Logger)
	if err != nil {
		return err
	}

	stream, err := client.SubscribeEvents(ctx, icinga2.EventSubscription{
		Types:  streamTypes,
		Queue:  *queue,
		Filter: *filter,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	deps.Logger.Printf("subscribed to %s (queue=%s)", *types, stream.Queue())

	limiter := rate.NewLimiter(rate.Inf, 1)
	if *maxRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*maxRate), 1)
	}

	count := 0
	for {
		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		fmt.Fprintf(deps.Out, "%s\n", event.Raw)
		count++
		if *max > 0 && count >= *max {
			return nil
		}
	}
}
