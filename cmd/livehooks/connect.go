package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/config"
	"github.com/vango-dev/livehooks/pkg/eventloop"
	"github.com/vango-dev/livehooks/pkg/features/hooks"
	"github.com/vango-dev/livehooks/pkg/features/hooks/standard"
	"github.com/vango-dev/livehooks/pkg/features/jsexec"
	"github.com/vango-dev/livehooks/pkg/live"
)

func connectCmd(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect URL",
		Short: "Load a live page and run it headlessly",
		Long: `Fetch the page at URL, open its live socket and mount its hooks.

Runs until interrupted or until the server closes the connection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, cfg, args[0])
		},
	}
	return cmd
}

func hookTable(cfg *config.Config) (*hooks.Table, error) {
	return hooks.NewBuilder().
		Register(standard.FlashHook, standard.FlashFactory(standard.FlashOptions{
			Delay:       cfg.FlashDelay(),
			ResumeDelay: cfg.FlashResumeDelay(),
		})).
		Register(standard.SortableHook, standard.SortableFactory(standard.SortableOptions{
			Animation: cfg.SortableAnimation(),
			DragClass: cfg.Sortable.DragClass,
			Handle:    cfg.Sortable.Handle,
		})).
		Build()
}

func runConnect(ctx context.Context, cfg *config.Config, pageURL string) error {
	table, err := hookTable(cfg)
	if err != nil {
		return err
	}
	policy, err := jsexec.ParsePolicy(cfg.Client.ExecPolicy)
	if err != nil {
		return err
	}

	page, err := live.Fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	loop := eventloop.New(slog.Default())
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go loop.Run(loopCtx)

	client := live.NewClient(page.Doc, loop, live.Config{
		URL:              page.URL,
		Path:             cfg.Client.Path,
		LongPollFallback: cfg.LongPollFallback(),
		Hooks:            table,
		ExecPolicy:       policy,
		Jar:              page.Jar,
	})
	socket, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	defer socket.Close()

	success("Connected to %s over %s", page.URL, socket.TransportName())
	var mounted int
	if err := loop.Call(ctx, func() { mounted = socket.Runtime().Len() }); err == nil {
		info("%d hooks mounted", mounted)
	}

	select {
	case <-ctx.Done():
		info("Disconnecting")
		return nil
	case <-socket.Done():
		return socket.Err()
	}
}
