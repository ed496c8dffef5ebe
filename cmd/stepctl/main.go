package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"example.com/steptracker/internal/client"
	"example.com/steptracker/internal/events"
)

var CLI struct {
	Server  string        `short:"s" help:"Base URL of the step tracker daemon" default:"http://localhost:8080" env:"STEPTRACKER_URL"`
	Timeout time.Duration `help:"Request timeout" default:"5s"`

	Count struct{} `cmd:"" help:"Print today's step count"`

	Watch struct{} `cmd:"" help:"Stream step updates until interrupted"`

	Register struct {
		URL string `arg:"" help:"Callback URL that receives step updates"`
	} `cmd:"" help:"Register a webhook for step updates"`

	Unregister struct {
		URL string `arg:"" help:"Previously registered callback URL"`
	} `cmd:"" help:"Stop sending step updates to a webhook"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("stepctl"),
		kong.Description("Query and subscribe to a running step tracker."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(CLI.Server, CLI.Timeout)

	var err error
	switch kctx.Command() {
	case "count":
		err = runCount(ctx, c)
	case "watch":
		err = c.Watch(ctx, func(u events.StepCountUpdated) {
			fmt.Printf("%s\t%d\n", u.OccurredAt.Local().Format(time.TimeOnly), u.StepCount)
		})
		if ctx.Err() != nil {
			err = nil
		}
	case "register <url>":
		err = c.Register(ctx, CLI.Register.URL)
	case "unregister <url>":
		err = c.Unregister(ctx, CLI.Unregister.URL)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		log.Fatalf("stepctl: %v", err)
	}
}

func runCount(ctx context.Context, c *client.Client) error {
	count, err := c.StepCount(ctx)
	if err != nil {
		return err
	}
	if !count.Initialized {
		fmt.Println("step sensor has not reported yet")
		return nil
	}
	fmt.Println(count.StepCount)
	return nil
}
