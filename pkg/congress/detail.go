package congress

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/Sternrassler/congress-api-client/pkg/hydration"
	"github.com/Sternrassler/congress-api-client/pkg/pagination"
	"github.com/Sternrassler/congress-api-client/pkg/record"
)

// Bill fetches bill/{congress}/{type}/{number}.
func (s *Service) Bill(ctx context.Context, congress int, billType, number string) (record.RawRecord, error) {
	return s.detail(ctx, "bill", "bill", strconv.Itoa(congress), strings.ToLower(billType), number)
}

// Amendment fetches amendment/{congress}/{type}/{number}.
func (s *Service) Amendment(ctx context.Context, congress int, amendmentType, number string) (record.RawRecord, error) {
	return s.detail(ctx, "amendment", "amendment", strconv.Itoa(congress), strings.ToLower(amendmentType), number)
}

// Member fetches member/{bioguideId}.
func (s *Service) Member(ctx context.Context, bioguideID string) (record.RawRecord, error) {
	return s.detail(ctx, "member", "member", bioguideID)
}

// Committee fetches committee/{chamber}/{systemCode}.
func (s *Service) Committee(ctx context.Context, chamber, systemCode string) (record.RawRecord, error) {
	return s.detail(ctx, "committee", "committee", strings.ToLower(chamber), systemCode)
}

// Hearing fetches hearing/{congress}/{chamber}/{jacketNumber}.
func (s *Service) Hearing(ctx context.Context, congress int, chamber, jacketNumber string) (record.RawRecord, error) {
	return s.detail(ctx, "hearing", "hearing", strconv.Itoa(congress), strings.ToLower(chamber), jacketNumber)
}

// CommitteeMeeting fetches committee-meeting/{congress}/{chamber}/{eventId}.
func (s *Service) CommitteeMeeting(ctx context.Context, congress int, chamber, eventID string) (record.RawRecord, error) {
	return s.detail(ctx, "committeeMeeting", "committee-meeting", strconv.Itoa(congress), strings.ToLower(chamber), eventID)
}

// detail fetches a detail path and returns the object under key.
func (s *Service) detail(ctx context.Context, key string, parts ...string) (record.RawRecord, error) {
	path := joinPath(parts...)
	body, err := s.fetcher.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	obj := body.Map(key)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s has no %q object", ErrNoDetail, path, key)
	}
	return obj, nil
}

// BillCosponsors streams bill/{congress}/{type}/{number}/cosponsors.
func (s *Service) BillCosponsors(ctx context.Context, congress int, billType, number string) iter.Seq2[record.RawRecord, error] {
	return s.sub(ctx, "cosponsors", "bill", strconv.Itoa(congress), strings.ToLower(billType), number, "cosponsors")
}

// BillActions streams bill/{congress}/{type}/{number}/actions.
func (s *Service) BillActions(ctx context.Context, congress int, billType, number string) iter.Seq2[record.RawRecord, error] {
	return s.sub(ctx, "actions", "bill", strconv.Itoa(congress), strings.ToLower(billType), number, "actions")
}

// BillAmendments streams bill/{congress}/{type}/{number}/amendments.
func (s *Service) BillAmendments(ctx context.Context, congress int, billType, number string) iter.Seq2[record.RawRecord, error] {
	return s.sub(ctx, "amendments", "bill", strconv.Itoa(congress), strings.ToLower(billType), number, "amendments")
}

// AmendmentCosponsors streams amendment/{congress}/{type}/{number}/cosponsors.
func (s *Service) AmendmentCosponsors(ctx context.Context, congress int, amendmentType, number string) iter.Seq2[record.RawRecord, error] {
	return s.sub(ctx, "cosponsors", "amendment", strconv.Itoa(congress), strings.ToLower(amendmentType), number, "cosponsors")
}

// AmendmentActions streams amendment/{congress}/{type}/{number}/actions.
func (s *Service) AmendmentActions(ctx context.Context, congress int, amendmentType, number string) iter.Seq2[record.RawRecord, error] {
	return s.sub(ctx, "actions", "amendment", strconv.Itoa(congress), strings.ToLower(amendmentType), number, "actions")
}

func (s *Service) sub(ctx context.Context, dataKey string, parts ...string) iter.Seq2[record.RawRecord, error] {
	return s.walker.Walk(ctx, pagination.Endpoint{Path: joinPath(parts...), DataKey: dataKey})
}

// hydrator returns the detail fetch for q's entity. Identifiers come from the
// list item, with the query's chamber as fallback.
func (s *Service) hydrator(q Query) hydration.Func {
	chamberOf := func(item record.RawRecord) string {
		if ch := item.String("chamber"); ch != "" {
			return strings.ToLower(ch)
		}
		return strings.ToLower(q.Chamber)
	}
	missing := func(fields ...string) error {
		return fmt.Errorf("%s needs %s: %w", q.Entity, strings.Join(fields, ", "), hydration.ErrMissingIdentifier)
	}

	switch q.Entity {
	case EntityHearing:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			cg, ok := item.Int("congress")
			jn, ch := item.String("jacketNumber"), chamberOf(item)
			if !ok || jn == "" || ch == "" {
				return nil, missing("congress", "chamber", "jacketNumber")
			}
			return s.Hearing(ctx, cg, ch, jn)
		}

	case EntityCommitteeMeeting:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			cg, ok := item.Int("congress")
			ev, ch := item.String("eventId"), chamberOf(item)
			if !ok || ev == "" || ch == "" {
				return nil, missing("congress", "chamber", "eventId")
			}
			return s.CommitteeMeeting(ctx, cg, ch, ev)
		}

	case EntityCommittee:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			sc, ch := item.String("systemCode"), chamberOf(item)
			if sc == "" || ch == "" {
				return nil, missing("chamber", "systemCode")
			}
			return s.Committee(ctx, ch, sc)
		}

	case EntityMember:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			id := item.String("bioguideId")
			if id == "" {
				return nil, missing("bioguideId")
			}
			return s.Member(ctx, id)
		}

	case EntityBill:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			cg, ok := item.Int("congress")
			bt := item.String("type")
			if bt == "" {
				bt = item.String("billType")
			}
			num := item.String("number")
			if !ok || bt == "" || num == "" {
				return nil, missing("congress", "type", "number")
			}
			detail, err := s.Bill(ctx, cg, bt, num)
			if err != nil || !q.IncludeCosponsors {
				return detail, err
			}
			return attach(detail,
				subResource{"cosponsorsList", s.BillCosponsors(ctx, cg, bt, num)},
				subResource{"actionsList", s.BillActions(ctx, cg, bt, num)},
				subResource{"amendmentsList", s.BillAmendments(ctx, cg, bt, num)},
			)
		}

	case EntityAmendment:
		return func(ctx context.Context, item record.RawRecord) (record.RawRecord, error) {
			cg, ok := item.Int("congress")
			at, num := item.String("type"), item.String("number")
			if !ok || at == "" || num == "" {
				return nil, missing("congress", "type", "number")
			}
			detail, err := s.Amendment(ctx, cg, at, num)
			if err != nil || !q.IncludeCosponsors {
				return detail, err
			}
			return attach(detail, subResource{"cosponsorsList", s.AmendmentCosponsors(ctx, cg, at, num)})
		}
	}

	return func(context.Context, record.RawRecord) (record.RawRecord, error) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, q.Entity)
	}
}

type subResource struct {
	key string
	seq iter.Seq2[record.RawRecord, error]
}

// attach drains each sub-resource stream into a list stored on a copy of detail.
func attach(detail record.RawRecord, subs ...subResource) (record.RawRecord, error) {
	out := detail.Clone()
	for _, sub := range subs {
		items, err := pagination.Collect(sub.seq)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", sub.key, err)
		}
		out[sub.key] = record.ToList(items)
	}
	return out, nil
}
