// Package filings attaches authoritative filing evidence to candidate records
// before they are resolved.
package filings

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
)

// Source looks up a filing for a candidate. A nil override means none is known.
type Source interface {
	Lookup(ctx context.Context, c deals.Candidate) (*deals.FilingOverride, error)
}

type Nop struct{}

func (Nop) Lookup(context.Context, deals.Candidate) (*deals.FilingOverride, error) { return nil, nil }

// Entry is one filing record in a static filings file.
type Entry struct {
	Company   string `yaml:"company"`
	Round     string `yaml:"round"`
	Amount    string `yaml:"amount"`
	Date      string `yaml:"date"`
	Reference string `yaml:"reference"`
}

type fileDoc struct {
	Filings []Entry `yaml:"filings"`
}

type staticKey struct {
	company string
	round   deals.RoundType
}

// Static serves filings held in memory, keyed by normalized company name and round.
type Static struct {
	byKey map[staticKey]deals.FilingOverride
}

func NewStatic(entries []Entry) (*Static, error) {
	s := &Static{byKey: make(map[staticKey]deals.FilingOverride, len(entries))}
	for i, e := range entries {
		name := normalization.NormalizeName(e.Company)
		if name == "" {
			return nil, fmt.Errorf("filing %d: company is required", i)
		}
		o := deals.FilingOverride{
			RawAmount: strings.TrimSpace(e.Amount),
			Reference: strings.TrimSpace(e.Reference),
		}
		if d := strings.TrimSpace(e.Date); d != "" {
			t, ok := deals.ParseDate(d)
			if !ok {
				return nil, fmt.Errorf("filing %d: bad date %q", i, d)
			}
			o.AnnouncedDate = &t
		}
		s.byKey[staticKey{company: name, round: deals.ParseRoundType(e.Round)}] = o
	}
	return s, nil
}

// LoadStatic reads a YAML document with a top-level "filings" list.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse filings %s: %w", path, err)
	}
	return NewStatic(doc.Filings)
}

func (s *Static) Len() int { return len(s.byKey) }

func (s *Static) Lookup(_ context.Context, c deals.Candidate) (*deals.FilingOverride, error) {
	k := staticKey{company: normalization.NormalizeName(c.Company), round: deals.ParseRoundType(c.Round)}
	if o, ok := s.byKey[k]; ok {
		out := o
		if o.AnnouncedDate != nil {
			t := *o.AnnouncedDate
			out.AnnouncedDate = &t
		}
		return &out, nil
	}
	return nil, nil
}
