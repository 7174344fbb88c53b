package deals

import (
	"encoding/json"
	"strings"
	"time"
)

// Candidate is the structured record handed over by the extraction step.
// Fields beyond these are ignored.
type Candidate struct {
	Company       string          `json:"company"`
	Round         string          `json:"round"`
	Amount        string          `json:"amount"`
	AnnouncedDate *Date           `json:"announced_date,omitempty"`
	Investors     []string        `json:"investors,omitempty"`
	LeadInvestor  string          `json:"lead_investor,omitempty"`
	Confidence    float64         `json:"confidence"`
	SourceURL     string          `json:"source_url"`
	SourceName    string          `json:"source_name,omitempty"`
	AmountSource  AmountSource    `json:"amount_source,omitempty"`
	Override      *FilingOverride `json:"-"`
}

// Lead returns the explicit lead investor, falling back to the first listed investor.
func (c Candidate) Lead() string {
	if l := strings.TrimSpace(c.LeadInvestor); l != "" {
		return l
	}
	for _, inv := range c.Investors {
		if inv = strings.TrimSpace(inv); inv != "" {
			return inv
		}
	}
	return ""
}

// FilingOverride is evidence from an authoritative filing. It always carries
// official-filing authority and full date confidence.
type FilingOverride struct {
	AnnouncedDate *time.Time
	RawAmount     string
	Reference     string
}

// Date is a calendar day decoded from "2006-01-02" or RFC3339 JSON strings.
// Text no layout accepts decodes as an undated value and is kept in Raw.
type Date struct {
	time.Time
	Raw string
}

func NewDate(y int, m time.Month, d int) *Date {
	return &Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	d.Time, d.Raw = time.Time{}, ""
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) != "null" {
			d.Raw = string(b)
		}
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, ok := ParseDate(s)
	if !ok {
		d.Raw = s
		return nil
	}
	d.Time = t
	return nil
}

// Unparsed reports text that was present but not recognised as a date.
func (d *Date) Unparsed() string {
	if d == nil || !d.IsZero() {
		return ""
	}
	return d.Raw
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Ptr returns the day as a UTC midnight pointer, nil for a zero or missing date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := TruncateDay(d.Time)
	return &t
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate accepts the layouts extractors commonly emit and returns UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDay(t), true
		}
	}
	return time.Time{}, false
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
