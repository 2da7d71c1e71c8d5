// Package congress exposes Congress.gov entities as lazy record streams.
//
// A Service lists an entity across one congress or an inclusive range of
// congresses, optionally hydrates each list item with its detail record, and
// filters the result with a caller predicate:
//
//	svc := congress.NewService(c, congress.DefaultConfig(), logger)
//	q := congress.Query{Entity: congress.EntityBill, CongressRange: [2]int{117, 118}, Hydrate: true}
//	for rec, err := range svc.Iter(ctx, q) {
//		...
//	}
//
// Typed views of records are available through Decode and Map.
package congress

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/congress-api-client/pkg/pagination"
)

// Entity names a listable Congress.gov resource.
type Entity string

const (
	EntityHearing          Entity = "hearing"
	EntityCommitteeMeeting Entity = "committee_meeting"
	EntityCommittee        Entity = "committee"
	EntityBill             Entity = "bill"
	EntityMember           Entity = "member"
	EntityAmendment        Entity = "amendment"
)

// Entities lists every supported entity.
var Entities = []Entity{
	EntityHearing,
	EntityCommitteeMeeting,
	EntityCommittee,
	EntityBill,
	EntityMember,
	EntityAmendment,
}

// ParseEntity accepts an entity name, tolerating case and dashes.
func ParseEntity(s string) (Entity, error) {
	norm := Entity(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, e := range Entities {
		if e == norm {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, s)
}

// CongressScoped reports whether the entity is listed per congress and so
// needs a congress number or range.
func (e Entity) CongressScoped() bool {
	switch e {
	case EntityHearing, EntityCommitteeMeeting, EntityBill, EntityAmendment:
		return true
	default:
		return false
	}
}

// listEndpoint builds the list traversal for a congress-scoped entity.
func (q Query) listEndpoint(congress int) (pagination.Endpoint, error) {
	cg := strconv.Itoa(congress)
	chamber := strings.ToLower(q.Chamber)

	switch q.Entity {
	case EntityHearing:
		return pagination.Endpoint{Path: joinPath("hearing", cg, chamber), DataKey: "hearings"}, nil
	case EntityCommitteeMeeting:
		return pagination.Endpoint{Path: joinPath("committee-meeting", cg, chamber), DataKey: "committeeMeetings"}, nil
	case EntityBill:
		params := url.Values{}
		setIf(params, "introducedDateStart", q.IntroducedStart)
		setIf(params, "introducedDateEnd", q.IntroducedEnd)
		return pagination.Endpoint{
			Path:    joinPath("bill", cg, strings.ToLower(q.BillType)),
			DataKey: "bills",
			Params:  params,
		}, nil
	case EntityAmendment:
		return pagination.Endpoint{
			Path:    joinPath("amendment", cg, strings.ToLower(q.AmendmentType)),
			DataKey: "amendments",
		}, nil
	default:
		return pagination.Endpoint{}, fmt.Errorf("%w: %s is not listed by congress", ErrInvalidQuery, q.Entity)
	}
}

// generalEndpoint builds the single list traversal for committees and members.
func (q Query) generalEndpoint() (pagination.Endpoint, error) {
	chamber := strings.ToLower(q.Chamber)
	scoped := q.Congress > 0 && chamber != ""

	switch q.Entity {
	case EntityCommittee:
		if scoped {
			return pagination.Endpoint{Path: joinPath("committee", strconv.Itoa(q.Congress), chamber), DataKey: "committees"}, nil
		}
		return pagination.Endpoint{Path: "committee", DataKey: "committees"}, nil
	case EntityMember:
		if scoped {
			return pagination.Endpoint{Path: joinPath("member", strconv.Itoa(q.Congress), chamber), DataKey: "members"}, nil
		}
		params := url.Values{}
		if q.Congress > 0 {
			params.Set("congress", strconv.Itoa(q.Congress))
		}
		setIf(params, "chamber", chamber)
		setIf(params, "state", q.State)
		setIf(params, "district", q.District)
		if q.Current != nil {
			params.Set("currentMember", strconv.FormatBool(*q.Current))
		}
		return pagination.Endpoint{Path: "member", DataKey: "members", Params: params}, nil
	default:
		return pagination.Endpoint{}, fmt.Errorf("%w: %s needs a congress", ErrInvalidQuery, q.Entity)
	}
}

func joinPath(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, url.PathEscape(p))
		}
	}
	return strings.Join(out, "/")
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
