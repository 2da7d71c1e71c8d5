package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/congress-api-client/pkg/congress"
	"github.com/Sternrassler/congress-api-client/pkg/record"
)

type listFlags struct {
	congress          int
	from, to          int
	chamber           string
	billType          string
	introducedStart   string
	introducedEnd     string
	amendmentType     string
	state             string
	district          string
	current           bool
	hydrate           bool
	includeCosponsors bool
	continueOnError   bool
	typed             bool
	limit             int
	workers           int
	resumeKey         string
	where             []string
}

func newListCmd(a *app) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Stream an entity list (hearing, committee_meeting, committee, bill, member, amendment)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(cmd, args[0], a.cfg.ContinueOnError)
			if err != nil {
				return err
			}

			count := 0
			if f.typed {
				for v, err := range a.service.Typed(cmd.Context(), q) {
					if err != nil {
						return err
					}
					if err := a.writeJSONLine(v); err != nil {
						return err
					}
					count++
				}
			} else {
				for rec, err := range a.service.Iter(cmd.Context(), q) {
					if err != nil {
						return err
					}
					if err := a.writeJSONLine(rec); err != nil {
						return err
					}
					count++
				}
			}

			a.logger.Info().Str("entity", string(q.Entity)).Int("items", count).Msg("List complete")
			return nil
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.congress, "congress", 0, "congress number")
	fl.IntVar(&f.from, "from", 0, "first congress of an inclusive range")
	fl.IntVar(&f.to, "to", 0, "last congress of an inclusive range")
	fl.StringVar(&f.chamber, "chamber", "", "house, senate or joint")
	fl.StringVar(&f.billType, "bill-type", "", "bill type, e.g. hr or s")
	fl.StringVar(&f.introducedStart, "introduced-start", "", "earliest introduced date (YYYY-MM-DD)")
	fl.StringVar(&f.introducedEnd, "introduced-end", "", "latest introduced date (YYYY-MM-DD)")
	fl.StringVar(&f.amendmentType, "amendment-type", "", "amendment type, e.g. samdt")
	fl.StringVar(&f.state, "state", "", "member state code")
	fl.StringVar(&f.district, "district", "", "member district")
	fl.BoolVar(&f.current, "current", false, "only current members")
	fl.BoolVar(&f.hydrate, "hydrate", false, "fetch the detail record of every item")
	fl.BoolVar(&f.includeCosponsors, "include-cosponsors", false, "attach cosponsors, actions and amendments when hydrating")
	fl.BoolVar(&f.continueOnError, "continue-on-error", true, "skip items whose detail fetch fails (default from config)")
	fl.BoolVar(&f.typed, "typed", false, "emit the typed model instead of the raw record")
	fl.IntVar(&f.limit, "limit", 0, "stop after this many records")
	fl.IntVar(&f.workers, "workers", 0, "concurrent detail fetches (default from config)")
	fl.StringVar(&f.resumeKey, "resume-key", "", "checkpoint name for resuming an interrupted traversal")
	fl.StringArrayVar(&f.where, "where", nil, "keep records whose field equals value (field=value, dotted paths allowed)")

	return cmd
}

// query turns the flags into a service query. Flags left unset fall back to
// configuration.
func (f listFlags) query(cmd *cobra.Command, entity string, continueOnError bool) (congress.Query, error) {
	e, err := congress.ParseEntity(entity)
	if err != nil {
		return congress.Query{}, err
	}

	q := congress.Query{
		Entity:            e,
		Chamber:           f.chamber,
		Congress:          f.congress,
		Hydrate:           f.hydrate || f.includeCosponsors,
		BillType:          f.billType,
		IntroducedStart:   f.introducedStart,
		IntroducedEnd:     f.introducedEnd,
		IncludeCosponsors: f.includeCosponsors,
		AmendmentType:     f.amendmentType,
		State:             f.state,
		District:          f.district,
		ContinueOnError:   continueOnError,
		Limit:             f.limit,
		Workers:           f.workers,
		ResumeKey:         f.resumeKey,
	}

	if cmd.Flags().Changed("continue-on-error") {
		q.ContinueOnError = f.continueOnError
	}
	if cmd.Flags().Changed("current") {
		current := f.current
		q.Current = &current
	}
	if f.from != 0 || f.to != 0 {
		if f.congress != 0 {
			return congress.Query{}, errors.New("--congress and --from/--to are mutually exclusive")
		}
		q.CongressRange = [2]int{f.from, f.to}
	}

	if len(f.where) > 0 {
		where, err := parseWhere(f.where)
		if err != nil {
			return congress.Query{}, err
		}
		q.Where = where
	}
	return q, nil
}

// parseWhere builds an AND of field=value equality filters.
func parseWhere(exprs []string) (func(record.RawRecord) bool, error) {
	type cond struct {
		path  []string
		value string
	}
	conds := make([]cond, 0, len(exprs))
	for _, expr := range exprs {
		field, value, ok := strings.Cut(expr, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where %q (want field=value)", expr)
		}
		conds = append(conds, cond{path: strings.Split(field, "."), value: value})
	}

	return func(rec record.RawRecord) bool {
		for _, c := range conds {
			if lookup(rec, c.path) != c.value {
				return false
			}
		}
		return true
	}, nil
}

func lookup(rec record.RawRecord, path []string) string {
	for _, key := range path[:len(path)-1] {
		rec = rec.Map(key)
		if rec == nil {
			return ""
		}
	}
	return rec.String(path[len(path)-1])
}
