package dedup

import (
	"math"
	"strings"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

const (
	confirmationBonus = 0.10
	confidenceCap     = 0.95
	earlierEpsilon    = 0.05
)

// Reason codes recorded for every applied change.
const (
	ReasonDateAdopted       = "date_adopted"
	ReasonDateConfirmed     = "date_confirmed"
	ReasonDateConfidence    = "date_higher_confidence"
	ReasonDatePlaceholder   = "date_placeholder_replaced"
	ReasonDateEarlier       = "date_earlier_preferred"
	ReasonAmountOfficial    = "amount_official_override"
	ReasonAmountFilled      = "amount_filled"
	ReasonAmountUnparseable = "stored_amount_unparseable"
	ReasonLeadFilled        = "lead_filled"
	ReasonLeadConfirmed     = "lead_confirmed"
)

// Evidence is what an incoming record says about an existing deal.
type Evidence struct {
	Date           *time.Time
	DateConfidence float64
	RawAmount      string
	Amount         *int64
	AmountSource   deals.AmountSource
	LeadInvestor   string
}

// Reconciliation is the column diff to apply plus why.
type Reconciliation struct {
	Updates map[string]any
	Reasons []string
}

func (r Reconciliation) Changed() bool { return len(r.Updates) > 0 }

func (r Reconciliation) AmountChanged() bool {
	_, ok := r.Updates["normalized_amount"]
	return ok
}

func (r Reconciliation) DateChanged() bool {
	_, ok := r.Updates["announced_date"]
	return ok
}

func (r *Reconciliation) set(col string, v any) {
	if r.Updates == nil {
		r.Updates = map[string]any{}
	}
	r.Updates[col] = v
}

func (r *Reconciliation) because(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

// Reconciler merges new evidence into a stored deal. Date and amount passes are
// independent and may both fire.
type Reconciler struct {
	parser *normalization.AmountParser
	log    *logger.Logger
}

func NewReconciler(log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		parser: normalization.NewAmountParser(log),
		log:    log.With("component", "ReconciliationEngine"),
	}
}

func (rc *Reconciler) Reconcile(existing deals.Deal, ev Evidence) Reconciliation {
	var out Reconciliation
	rc.reconcileDate(&out, existing, ev)
	rc.reconcileAmount(&out, existing, ev)
	rc.reconcileLead(&out, existing, ev)
	if existing.DateSourceCount+countDelta(out) >= 2 || hasReason(out, ReasonAmountOfficial) {
		if !existing.EvidenceStrong {
			out.set("evidence_strong", true)
		}
	}
	return out
}

// reconcileDate evaluates its branches in a fixed order; the first that applies wins.
func (rc *Reconciler) reconcileDate(out *Reconciliation, existing deals.Deal, ev Evidence) {
	if ev.Date == nil {
		return
	}
	incoming := deals.TruncateDay(*ev.Date)
	conf := clampConfidence(ev.DateConfidence)

	if existing.AnnouncedDate == nil {
		out.set("announced_date", incoming)
		out.set("date_confidence", conf)
		out.set("date_source_count", 1)
		out.because(ReasonDateAdopted)
		return
	}
	stored := deals.TruncateDay(*existing.AnnouncedDate)

	switch {
	case withinDays(stored, incoming, 1):
		bumped := math.Min(existing.DateConfidence+confirmationBonus, confidenceCap)
		if bumped > existing.DateConfidence {
			out.set("date_confidence", bumped)
		}
		out.set("date_source_count", existing.DateSourceCount+1)
		out.because(ReasonDateConfirmed)
	case conf > existing.DateConfidence:
		rc.replaceDate(out, incoming, conf, ReasonDateConfidence)
	case IsPlaceholderDate(stored) && !IsPlaceholderDate(incoming):
		rc.replaceDate(out, incoming, conf, ReasonDatePlaceholder)
	case incoming.Before(stored) && math.Abs(conf-existing.DateConfidence) <= earlierEpsilon:
		rc.replaceDate(out, incoming, conf, ReasonDateEarlier)
	}
}

func (rc *Reconciler) replaceDate(out *Reconciliation, d time.Time, conf float64, reason string) {
	out.set("announced_date", d)
	out.set("date_confidence", conf)
	out.set("date_source_count", 1)
	out.because(reason)
}

func (rc *Reconciler) reconcileAmount(out *Reconciliation, existing deals.Deal, ev Evidence) {
	incoming := ev.Amount
	if incoming == nil && ev.RawAmount != "" {
		if v, ok := rc.parser.Parse(ev.RawAmount); ok {
			incoming = &v
		}
	}
	if incoming == nil {
		return
	}
	source := ev.AmountSource.OrDefault()
	storedSource := existing.AmountSource

	if source == deals.AmountSourceOfficialFiling && storedSource != deals.AmountSourceOfficialFiling {
		out.set("raw_amount", ev.RawAmount)
		out.set("normalized_amount", *incoming)
		out.set("amount_source", source)
		out.because(ReasonAmountOfficial)
		return
	}

	if !normalization.IsPlaceholderAmount(existing.RawAmount) {
		if existing.NormalizedAmount == nil {
			if _, ok := rc.parser.Parse(existing.RawAmount); !ok {
				rc.log.Warn("stored amount does not parse, skipping amount reconciliation",
					"deal_id", existing.ID,
					"raw_amount", existing.RawAmount,
				)
				out.because(ReasonAmountUnparseable)
			}
		}
		return
	}

	// A placeholder carries no amount to protect, so the label follows the fill.
	out.set("raw_amount", ev.RawAmount)
	out.set("normalized_amount", *incoming)
	if source != storedSource {
		out.set("amount_source", source)
	}
	out.because(ReasonAmountFilled)
}

func (rc *Reconciler) reconcileLead(out *Reconciliation, existing deals.Deal, ev Evidence) {
	lead := strings.TrimSpace(ev.LeadInvestor)
	if lead == "" {
		return
	}
	if strings.TrimSpace(existing.LeadInvestor) == "" {
		out.set("lead_investor", lead)
		out.because(ReasonLeadFilled)
		return
	}
	if !existing.LeadConfirmed && strings.EqualFold(strings.TrimSpace(existing.LeadInvestor), lead) {
		out.set("lead_confirmed", true)
		out.because(ReasonLeadConfirmed)
	}
}

// IsPlaceholderDate flags dates extractors emit when only a year or quarter is
// known: January 1st, or the first day of a quarter month.
func IsPlaceholderDate(d time.Time) bool {
	if d.Day() != 1 {
		return false
	}
	switch d.Month() {
	case time.January, time.April, time.July, time.October:
		return true
	default:
		return false
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func countDelta(r Reconciliation) int {
	if hasReason(r, ReasonDateConfirmed) {
		return 1
	}
	return 0
}

func hasReason(r Reconciliation, reason string) bool {
	for _, x := range r.Reasons {
		if x == reason {
			return true
		}
	}
	return false
}
