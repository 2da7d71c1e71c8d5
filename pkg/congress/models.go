package congress

import (
	"fmt"
	"reflect"

	"github.com/Sternrassler/congress-api-client/pkg/record"
	"github.com/go-viper/mapstructure/v2"
)

// Ref is a {count, url} pointer to a sub-resource.
type Ref struct {
	Count int    `mapstructure:"count"`
	URL   string `mapstructure:"url"`
}

// Named is an object identified by name, such as a policy area.
type Named struct {
	Name       string `mapstructure:"name"`
	SystemCode string `mapstructure:"systemCode"`
}

// Action is a legislative action.
type Action struct {
	ActionDate string `mapstructure:"actionDate"`
	ActionTime string `mapstructure:"actionTime"`
	Text       string `mapstructure:"text"`
	Type       string `mapstructure:"type"`
	ActionCode string `mapstructure:"actionCode"`
}

// Format is one published rendition of a hearing.
type Format struct {
	Type string `mapstructure:"type"`
	URL  string `mapstructure:"url"`
}

// TextVersion is one published text of a bill.
type TextVersion struct {
	Type string `mapstructure:"type"`
	Date string `mapstructure:"date"`
	URL  string `mapstructure:"url"`
}

// Term is one term of service of a member.
type Term struct {
	Congress  int    `mapstructure:"congress"`
	Chamber   string `mapstructure:"chamber"`
	StateCode string `mapstructure:"stateCode"`
	District  string `mapstructure:"district"`
	StartYear int    `mapstructure:"startYear"`
	EndYear   int    `mapstructure:"endYear"`
}

// Member is a member of Congress, also used for sponsors and cosponsors.
type Member struct {
	BioguideID    string `mapstructure:"bioguideId"`
	Name          string `mapstructure:"name"`
	FullName      string `mapstructure:"fullName"`
	FirstName     string `mapstructure:"firstName"`
	MiddleName    string `mapstructure:"middleName"`
	LastName      string `mapstructure:"lastName"`
	Party         string `mapstructure:"party"`
	PartyName     string `mapstructure:"partyName"`
	State         string `mapstructure:"state"`
	District      string `mapstructure:"district"`
	CurrentMember *bool  `mapstructure:"currentMember"`
	Terms         []Term `mapstructure:"terms"`

	// Set when the member appears as a sponsor or cosponsor.
	SponsorshipDate          string `mapstructure:"sponsorshipDate"`
	SponsorshipWithdrawnDate string `mapstructure:"sponsorshipWithdrawnDate"`
	IsOriginalCosponsor      *bool  `mapstructure:"isOriginalCosponsor"`

	UpdateDate string         `mapstructure:"updateDate"`
	URL        string         `mapstructure:"url"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Amendment is a House or Senate amendment.
type Amendment struct {
	Congress      int            `mapstructure:"congress"`
	Type          string         `mapstructure:"type"`
	Number        string         `mapstructure:"number"`
	Description   string         `mapstructure:"description"`
	Purpose       string         `mapstructure:"purpose"`
	Chamber       string         `mapstructure:"chamber"`
	ProposedDate  string         `mapstructure:"proposedDate"`
	SubmittedDate string         `mapstructure:"submittedDate"`
	LatestAction  *Action        `mapstructure:"latestAction"`
	AmendedBill   map[string]any `mapstructure:"amendedBill"`
	Sponsors      []Member       `mapstructure:"sponsors"`

	Cosponsors     *Ref     `mapstructure:"cosponsors"`
	CosponsorsList []Member `mapstructure:"cosponsorsList"`
	Actions        *Ref     `mapstructure:"actions"`
	TextVersions   *Ref     `mapstructure:"textVersions"`

	UpdateDate string         `mapstructure:"updateDate"`
	URL        string         `mapstructure:"url"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Bill is a bill or resolution.
type Bill struct {
	Congress          int     `mapstructure:"congress"`
	Type              string  `mapstructure:"type"`
	Number            string  `mapstructure:"number"`
	Title             string  `mapstructure:"title"`
	IntroducedDate    string  `mapstructure:"introducedDate"`
	OriginChamber     string  `mapstructure:"originChamber"`
	OriginChamberCode string  `mapstructure:"originChamberCode"`
	LatestAction      *Action `mapstructure:"latestAction"`
	PolicyArea        *Named  `mapstructure:"policyArea"`

	Sponsors []Member         `mapstructure:"sponsors"`
	Laws     []map[string]any `mapstructure:"laws"`

	ConstitutionalAuthorityStatement string           `mapstructure:"constitutionalAuthorityStatementText"`
	CBOCostEstimates                 []map[string]any `mapstructure:"cboCostEstimates"`
	CommitteeReports                 []map[string]any `mapstructure:"committeeReports"`

	Cosponsors   *Ref `mapstructure:"cosponsors"`
	Actions      *Ref `mapstructure:"actions"`
	Amendments   *Ref `mapstructure:"amendments"`
	Committees   *Ref `mapstructure:"committees"`
	RelatedBills *Ref `mapstructure:"relatedBills"`
	Subjects     *Ref `mapstructure:"subjects"`
	Summaries    *Ref `mapstructure:"summaries"`
	Titles       *Ref `mapstructure:"titles"`
	TextVersions *Ref `mapstructure:"textVersions"`

	// Filled by hydration with IncludeCosponsors.
	CosponsorsList []Member    `mapstructure:"cosponsorsList"`
	ActionsList    []Action    `mapstructure:"actionsList"`
	AmendmentsList []Amendment `mapstructure:"amendmentsList"`

	UpdateDate              string         `mapstructure:"updateDate"`
	UpdateDateIncludingText string         `mapstructure:"updateDateIncludingText"`
	URL                     string         `mapstructure:"url"`
	Extra                   map[string]any `mapstructure:",remain"`
}

// Committee is a standing, select or joint committee.
type Committee struct {
	SystemCode        string  `mapstructure:"systemCode"`
	Name              string  `mapstructure:"name"`
	Chamber           string  `mapstructure:"chamber"`
	CommitteeTypeCode string  `mapstructure:"committeeTypeCode"`
	Type              string  `mapstructure:"type"`
	IsCurrent         *bool   `mapstructure:"isCurrent"`
	Parent            *Named  `mapstructure:"parent"`
	Subcommittees     []Named `mapstructure:"subcommittees"`

	UpdateDate string         `mapstructure:"updateDate"`
	URL        string         `mapstructure:"url"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Hearing is a published hearing transcript.
type Hearing struct {
	JacketNumber string   `mapstructure:"jacketNumber"`
	Title        string   `mapstructure:"title"`
	Congress     int      `mapstructure:"congress"`
	Chamber      string   `mapstructure:"chamber"`
	Citation     string   `mapstructure:"citation"`
	Committees   []Named  `mapstructure:"committees"`
	Dates        []Date   `mapstructure:"dates"`
	Formats      []Format `mapstructure:"formats"`

	UpdateDate string         `mapstructure:"updateDate"`
	URL        string         `mapstructure:"url"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Date wraps a single date entry.
type Date struct {
	Date string `mapstructure:"date"`
}

// CommitteeMeeting is a scheduled committee meeting or markup.
type CommitteeMeeting struct {
	EventID       string  `mapstructure:"eventId"`
	Type          string  `mapstructure:"type"`
	Title         string  `mapstructure:"title"`
	MeetingStatus string  `mapstructure:"meetingStatus"`
	Date          string  `mapstructure:"date"`
	Chamber       string  `mapstructure:"chamber"`
	Congress      int     `mapstructure:"congress"`
	Committees    []Named `mapstructure:"committees"`

	Location          map[string]any   `mapstructure:"location"`
	HearingTranscript []map[string]any `mapstructure:"hearingTranscript"`
	Witnesses         []map[string]any `mapstructure:"witnesses"`
	Documents         []map[string]any `mapstructure:"meetingDocuments"`
	Videos            []map[string]any `mapstructure:"videos"`
	RelatedItems      map[string]any   `mapstructure:"relatedItems"`

	UpdateDate string         `mapstructure:"updateDate"`
	URL        string         `mapstructure:"url"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Decode maps a record onto T. Numbers and strings convert loosely, and list
// fields accept every list shape the API produces.
func Decode[T any](rec record.RawRecord) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(itemsHook),
	})
	if err != nil {
		return out, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(rec)); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

// Map decodes rec into the struct for entity and returns a pointer to it.
func Map(entity Entity, rec record.RawRecord) (any, error) {
	switch entity {
	case EntityBill:
		return decodePtr[Bill](rec)
	case EntityAmendment:
		return decodePtr[Amendment](rec)
	case EntityMember:
		return decodePtr[Member](rec)
	case EntityCommittee:
		return decodePtr[Committee](rec)
	case EntityHearing:
		return decodePtr[Hearing](rec)
	case EntityCommitteeMeeting:
		return decodePtr[CommitteeMeeting](rec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
}

func decodePtr[T any](rec record.RawRecord) (*T, error) {
	v, err := Decode[T](rec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// itemsHook normalizes {"item": ...} and {"items": ...} wrappers, and single
// objects, when the target is a slice.
func itemsHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice || from.Kind() != reflect.Map {
		return data, nil
	}
	m := record.AsRecord(data)
	if m == nil {
		return data, nil
	}
	if _, ok := m["item"]; ok {
		return record.ToList(record.Items(m)), nil
	}
	if _, ok := m["items"]; ok {
		return record.ToList(record.Items(m)), nil
	}
	return []any{map[string]any(m)}, nil
}
