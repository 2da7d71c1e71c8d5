package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/congress-api-client/pkg/record"
)

// detailCommand describes one "get" subcommand.
type detailCommand struct {
	use   string
	short string
	args  int
	fetch func(ctx context.Context, a *app, args []string) (record.RawRecord, error)
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a single entity detail record",
	}

	details := []detailCommand{
		{
			use: "bill <congress> <type> <number>", short: "Fetch a bill", args: 3,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				cg, err := parseCongress(args[0])
				if err != nil {
					return nil, err
				}
				return a.service.Bill(ctx, cg, args[1], args[2])
			},
		},
		{
			use: "amendment <congress> <type> <number>", short: "Fetch an amendment", args: 3,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				cg, err := parseCongress(args[0])
				if err != nil {
					return nil, err
				}
				return a.service.Amendment(ctx, cg, args[1], args[2])
			},
		},
		{
			use: "member <bioguideId>", short: "Fetch a member", args: 1,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				return a.service.Member(ctx, args[0])
			},
		},
		{
			use: "committee <chamber> <systemCode>", short: "Fetch a committee", args: 2,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				return a.service.Committee(ctx, args[0], args[1])
			},
		},
		{
			use: "hearing <congress> <chamber> <jacketNumber>", short: "Fetch a hearing", args: 3,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				cg, err := parseCongress(args[0])
				if err != nil {
					return nil, err
				}
				return a.service.Hearing(ctx, cg, args[1], args[2])
			},
		},
		{
			use: "committee-meeting <congress> <chamber> <eventId>", short: "Fetch a committee meeting", args: 3,
			fetch: func(ctx context.Context, a *app, args []string) (record.RawRecord, error) {
				cg, err := parseCongress(args[0])
				if err != nil {
					return nil, err
				}
				return a.service.CommitteeMeeting(ctx, cg, args[1], args[2])
			},
		},
	}

	for _, d := range details {
		cmd.AddCommand(&cobra.Command{
			Use:   d.use,
			Short: d.short,
			Args:  cobra.ExactArgs(d.args),
			RunE: func(cmd *cobra.Command, args []string) error {
				rec, err := d.fetch(cmd.Context(), a, args)
				if err != nil {
					return err
				}
				return a.writeJSONLine(rec)
			},
		})
	}
	return cmd
}

func parseCongress(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid congress %q", s)
	}
	return n, nil
}
