package dedup

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

// Match is the first tier hit for a probe.
type Match struct {
	Row  Row
	Tier string
}

// Matcher runs tiers in order and stops at the first hit.
type Matcher struct {
	tiers  []Tier
	log    *logger.Logger
	tracer trace.Tracer
}

// NewMatcher uses DefaultTiers when tiers is empty.
func NewMatcher(log *logger.Logger, tiers ...Tier) *Matcher {
	if log == nil {
		log = logger.NewNop()
	}
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Matcher{
		tiers:  tiers,
		log:    log.With("component", "DuplicateMatcher"),
		tracer: otel.Tracer("dealwatch/dedup"),
	}
}

func (m *Matcher) Tiers() []string {
	out := make([]string, 0, len(m.tiers))
	for _, t := range m.tiers {
		out = append(out, t.Name)
	}
	return out
}

// Find returns nil, nil when no tier matches.
func (m *Matcher) Find(ctx context.Context, store Store, p Probe) (*Match, error) {
	for _, tier := range m.tiers {
		row, err := m.runTier(ctx, tier, store, p)
		if err != nil {
			return nil, err
		}
		if row != nil {
			m.log.Debug("duplicate found",
				"tier", tier.Name,
				"company", p.Name,
				"deal_id", row.Deal.ID,
			)
			return &Match{Row: *row, Tier: tier.Name}, nil
		}
	}
	return nil, nil
}

func (m *Matcher) runTier(ctx context.Context, tier Tier, store Store, p Probe) (*Row, error) {
	ctx, span := m.tracer.Start(ctx, "dedup."+tier.Name, trace.WithAttributes(
		attribute.String("dedup.tier", tier.Name),
		attribute.String("dedup.round", string(p.Round)),
	))
	defer span.End()

	row, err := tier.Find(ctx, store, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("dedup.hit", row != nil))
	return row, nil
}
