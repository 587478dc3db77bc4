package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/params"
	"github.com/urfave/cli/v2"
)

var limitFlag = &cli.IntFlag{
	Name:  "limit",
	Usage: "Number of events to show, newest first",
	Value: params.DefaultFeedLength,
}

var (
	eventsCommand = &cli.Command{
		Action: events,
		Name:   "events",
		Usage:  "List recent counter changes",
		Flags:  []cli.Flag{limitFlag},
		Description: `
Scans CounterChanged events from --fromblock to the chain head and prints the
most recent ones.`,
	}
	watchCommand = &cli.Command{
		Action: watch,
		Name:   "watch",
		Usage:  "Follow counter changes as they happen",
		Flags:  []cli.Flag{limitFlag},
		Description: `
Prints the most recent changes, then polls for new CounterChanged events until
interrupted.`,
	}
)

func events(ctx *cli.Context) error {
	b, err := newBackend(ctx, backendOptions{})
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.feed.Sync(ctx.Context); err != nil {
		return err
	}
	recent := b.feed.Recent(ctx.Int(limitFlag.Name))
	if ctx.Bool(utils.JSONFlag.Name) {
		if recent == nil {
			recent = []*counter.CounterChanged{}
		}
		return printJSON(ctx, recent)
	}
	if len(recent) == 0 {
		fmt.Fprintln(ctx.App.Writer, "No counter changes found.")
		return nil
	}
	printEvents(ctx.App.Writer, recent)
	return nil
}

// printEvents renders events as a table.
func printEvents(w io.Writer, events []*counter.CounterChanged) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Reason", "Change", "Caller", "Transaction"})
	table.SetAutoWrapText(false)
	for _, ev := range events {
		table.Append([]string{
			strconv.FormatUint(ev.BlockNumber, 10),
			ev.Reason.Icon() + " " + ev.Reason.String(),
			fmt.Sprintf("%d → %d", ev.OldValue, ev.NewValue),
			contractvalue.FormatAddress(contractvalue.Felt(ev.Caller)),
			contractvalue.FormatAddress(contractvalue.String(ev.TransactionHash.Hex())),
		})
	}
	table.Render()
}

func watch(ctx *cli.Context) error {
	b, err := newBackend(ctx, backendOptions{})
	if err != nil {
		return err
	}
	defer b.Close()

	sigctx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := b.feed.Sync(sigctx); err != nil {
		return err
	}
	if recent := b.feed.Recent(ctx.Int(limitFlag.Name)); len(recent) > 0 {
		printEvents(ctx.App.Writer, recent)
	}

	ch := make(chan *counter.CounterChanged, 16)
	sub := b.feed.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	errc := make(chan error, 1)
	go func() { errc <- b.feed.Watch(sigctx) }()
	log.Info("Watching counter changes", "contract", b.contract.Address, "interval", b.cfg.Chain.PollInterval)

	for {
		select {
		case ev := <-ch:
			if ctx.Bool(utils.JSONFlag.Name) {
				if err := printJSON(ctx, ev); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(ctx.App.Writer, "%s %-8s %d → %d  block %d  by %s\n",
				ev.Reason.Icon(), ev.Reason, ev.OldValue, ev.NewValue, ev.BlockNumber,
				contractvalue.FormatAddress(contractvalue.Felt(ev.Caller)))
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
