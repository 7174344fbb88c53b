package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/dealwatch-backend/internal/data/repos"
	"github.com/yungbote/dealwatch-backend/internal/dedup"
	types "github.com/yungbote/dealwatch-backend/internal/domain"
	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
	"github.com/yungbote/dealwatch-backend/internal/platform/ctxutil"
	"github.com/yungbote/dealwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

const (
	opResolveDeal   = "deal_identity.resolve"
	opRegisterAlias = "deal_identity.register_alias"

	TierAmountKey = "amount_key"
	TierDedupKey  = "dedup_key"
)

type DealIdentityDeps struct {
	BaseDeps
	Repos        repos.Set
	Matcher      *dedup.Matcher
	Reconciler   *dedup.Reconciler
	Keys         *dedup.KeyBuilder
	Amounts      *normalization.AmountParser
	TrackedLeads []string
	Now          func() time.Time
}

type dealIdentityAggregate struct {
	deps    DealIdentityDeps
	log     *logger.Logger
	tracked map[string]struct{}
	tracer  trace.Tracer
}

var _ domainagg.DealIdentityAggregate = (*dealIdentityAggregate)(nil)

func NewDealIdentityAggregate(deps DealIdentityDeps) domainagg.DealIdentityAggregate {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Matcher == nil {
		deps.Matcher = dedup.NewMatcher(deps.Log)
	}
	if deps.Reconciler == nil {
		deps.Reconciler = dedup.NewReconciler(deps.Log)
	}
	if deps.Keys == nil {
		deps.Keys = dedup.NewKeyBuilder(deps.Now)
	}
	if deps.Amounts == nil {
		deps.Amounts = normalization.NewAmountParser(deps.Log)
	}
	deps.BaseDeps = deps.BaseDeps.withDefaults()

	tracked := map[string]struct{}{}
	for _, lead := range deps.TrackedLeads {
		if n := normalization.NormalizeName(lead); n != "" {
			tracked[n] = struct{}{}
		}
	}
	return &dealIdentityAggregate{
		deps:    deps,
		log:     deps.Log.With("aggregate", "DealIdentityAggregate"),
		tracked: tracked,
		tracer:  otel.Tracer("dealwatch/aggregates"),
	}
}

func (a *dealIdentityAggregate) Contract() domainagg.Contract {
	return domainagg.DealIdentityAggregateContract
}

// resolveInput is a candidate reduced to comparable values, with any filing
// override already applied.
type resolveInput struct {
	name       string
	normalized string
	round      deals.RoundType
	evidence   dedup.Evidence
	sourceURL  string
	sourceName string
	log        *logger.Logger
}

func (a *dealIdentityAggregate) Resolve(ctx context.Context, in ResolveDealInput) (ResolveDealResult, error) {
	ri, err := a.prepare(in.Candidate)
	if err != nil {
		return ResolveDealResult{}, err
	}
	ri.log = a.log
	if rd := ctxutil.GetRecordData(ctx); rd != nil {
		ri.log = a.log.With("origin", rd.Origin)
	}

	ctx, span := a.tracer.Start(ctx, opResolveDeal, trace.WithAttributes(
		attribute.String("deal.company", ri.normalized),
		attribute.String("deal.round", string(ri.round)),
	))
	defer span.End()

	var out ResolveDealResult
	err = executeWrite(ctx, a.deps.BaseDeps, opResolveDeal, func(dbc dbctx.Context) error {
		out = ResolveDealResult{}
		return a.resolveInTx(dbc, ri, &out)
	})
	if err != nil {
		return ResolveDealResult{}, err
	}
	span.SetAttributes(
		attribute.Bool("deal.created", out.Created),
		attribute.String("deal.tier", out.Tier),
	)
	return out, nil
}

func (a *dealIdentityAggregate) prepare(c deals.Candidate) (resolveInput, error) {
	name := strings.TrimSpace(c.Company)
	normalized := normalization.NormalizeName(name)
	if normalized == "" {
		return resolveInput{}, domainagg.NewError(domainagg.CodeValidation, opResolveDeal, "company name is empty after normalization", nil)
	}
	ev := dedup.Evidence{
		Date:           c.AnnouncedDate.Ptr(),
		DateConfidence: c.Confidence,
		RawAmount:      strings.TrimSpace(c.Amount),
		AmountSource:   c.AmountSource.OrDefault(),
		LeadInvestor:   c.Lead(),
	}
	if v, ok := a.deps.Amounts.Parse(ev.RawAmount); ok {
		ev.Amount = &v
	}
	if o := c.Override; o != nil {
		if o.AnnouncedDate != nil {
			d := deals.TruncateDay(*o.AnnouncedDate)
			ev.Date = &d
			ev.DateConfidence = 1.0
		}
		if v, ok := a.deps.Amounts.Parse(o.RawAmount); ok {
			ev.RawAmount = strings.TrimSpace(o.RawAmount)
			ev.Amount = &v
			ev.AmountSource = deals.AmountSourceOfficialFiling
		}
	}
	return resolveInput{
		name:       name,
		normalized: normalized,
		round:      deals.ParseRoundType(c.Round),
		evidence:   ev,
		sourceURL:  strings.TrimSpace(c.SourceURL),
		sourceName: strings.TrimSpace(c.SourceName),
	}, nil
}

func (a *dealIdentityAggregate) resolveInTx(dbc dbctx.Context, ri resolveInput, out *ResolveDealResult) error {
	now := a.deps.Now()
	ev := ri.evidence

	probe := dedup.NewProbe(ri.name, ri.round, ev.Date, ev.Amount, now)
	match, err := a.deps.Matcher.Find(dbc.Ctx, newMatchStore(dbc, a.deps.Repos), probe)
	if err != nil {
		return err
	}
	if match != nil {
		return a.merge(dbc, out, match.Row.Deal, match.Row.NormalizedName, match.Tier, ri, now)
	}

	amountKey, hasAmountKey := a.deps.Keys.AmountKey(ri.normalized, ev.Amount, ev.Date)
	if hasAmountKey {
		existing, err := a.deps.Repos.Deals.GetByAmountDedupKey(dbc, amountKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return a.merge(dbc, out, *existing, ri.normalized, TierAmountKey, ri, now)
		}
	}

	company, err := a.findOrCreateCompany(dbc, ri.name, ri.normalized, now)
	if err != nil {
		return err
	}

	deal := &types.Deal{
		ID:               uuid.New(),
		CompanyID:        company.ID,
		RoundType:        ri.round,
		RawAmount:        ev.RawAmount,
		NormalizedAmount: ev.Amount,
		AmountSource:     ev.AmountSource,
		AnnouncedDate:    ev.Date,
		DedupKey:         a.deps.Keys.PrimaryKey(ri.normalized, ri.round, ev.Date),
		LeadInvestor:     ev.LeadInvestor,
		EvidenceStrong:   ev.AmountSource == deals.AmountSourceOfficialFiling,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ev.Date != nil {
		deal.DateConfidence = clamp01(ev.DateConfidence)
		deal.DateSourceCount = 1
	}
	if hasAmountKey {
		deal.AmountDedupKey = &amountKey
	}

	inserted, err := a.insertDeal(dbc, deal)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost the race: another transaction committed the same dedup key
		// between our match and our insert.
		existing, err := a.deps.Repos.Deals.GetByDedupKey(dbc, deal.DedupKey)
		if err != nil {
			return err
		}
		if existing == nil {
			return RetryableError("dedup key taken but existing deal not visible")
		}
		ri.log.Info("concurrent insert resolved to existing deal",
			"deal_id", existing.ID,
			"dedup_key", deal.DedupKey,
		)
		return a.merge(dbc, out, *existing, ri.normalized, TierDedupKey, ri, now)
	}

	linked, err := a.link(dbc, deal.ID, ri, now)
	if err != nil {
		return err
	}
	out.DealID = deal.ID
	out.Created = true
	out.Linked = linked
	out.Alert = a.alertFor(deal, ri)
	ri.log.Info("deal created",
		"deal_id", deal.ID,
		"company", ri.name,
		"round", ri.round,
	)
	return nil
}

// insertDeal runs the constraint-guarded insert inside a savepoint, so a unique
// violation surfaced as an error takes the same path as zero rows affected.
func (a *dealIdentityAggregate) insertDeal(dbc dbctx.Context, deal *types.Deal) (bool, error) {
	var inserted bool
	err := inSavepoint(dbc, func(sp dbctx.Context) error {
		var err error
		inserted, err = a.deps.Repos.Deals.InsertIfAbsent(sp, deal)
		return err
	})
	if isUniqueViolation(err) {
		return false, nil
	}
	return inserted, err
}

func (a *dealIdentityAggregate) merge(dbc dbctx.Context, out *ResolveDealResult, existing types.Deal, normalized, tier string, ri resolveInput, now time.Time) error {
	if existing.RoundType != ri.round && existing.RoundType != deals.RoundUnknown && ri.round != deals.RoundUnknown {
		out.RoundMismatch = true
		ri.log.Warn("round type mismatch folded into existing deal",
			"deal_id", existing.ID,
			"tier", tier,
			"stored_round", existing.RoundType,
			"incoming_round", ri.round,
			"source_url", ri.sourceURL,
		)
	}

	rec := a.deps.Reconciler.Reconcile(existing, ri.evidence)
	if rec.Changed() {
		updates := rec.Updates
		if rec.AmountChanged() || rec.DateChanged() {
			a.refreshAmountKey(updates, existing, normalized)
		}
		updates["updated_at"] = now
		ok, err := a.deps.CASGuard.UpdateByVersion(dbc, types.Deal{}.TableName(), existing.ID, existing.Version, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "deal changed concurrently"); err != nil {
			return err
		}
		ri.log.Debug("deal reconciled", "deal_id", existing.ID, "reasons", rec.Reasons)
	}

	linked, err := a.link(dbc, existing.ID, ri, now)
	if err != nil {
		return err
	}
	out.DealID = existing.ID
	out.Created = false
	out.Tier = tier
	out.Linked = linked
	return nil
}

func (a *dealIdentityAggregate) refreshAmountKey(updates map[string]any, existing types.Deal, normalized string) {
	amount := existing.NormalizedAmount
	if v, ok := updates["normalized_amount"].(int64); ok {
		amount = &v
	}
	date := existing.AnnouncedDate
	if v, ok := updates["announced_date"].(time.Time); ok {
		date = &v
	}
	if key, ok := a.deps.Keys.AmountKey(normalized, amount, date); ok {
		updates["amount_dedup_key"] = key
	}
}

func (a *dealIdentityAggregate) link(dbc dbctx.Context, dealID uuid.UUID, ri resolveInput, now time.Time) (bool, error) {
	if ri.sourceURL == "" {
		return false, nil
	}
	return a.deps.Repos.SourceLinks.InsertIfAbsent(dbc, &types.SourceLink{
		ID:         uuid.New(),
		DealID:     dealID,
		SourceURL:  ri.sourceURL,
		SourceName: ri.sourceName,
		CreatedAt:  now,
	})
}

func (a *dealIdentityAggregate) alertFor(deal *types.Deal, ri resolveInput) *types.Alert {
	lead := strings.TrimSpace(ri.evidence.LeadInvestor)
	if lead == "" {
		return nil
	}
	if _, ok := a.tracked[normalization.NormalizeName(lead)]; !ok {
		return nil
	}
	return &types.Alert{
		DealID:    deal.ID,
		Company:   ri.name,
		RawAmount: deal.RawAmount,
		Amount:    deal.NormalizedAmount,
		Round:     deal.RoundType,
		LeadName:  lead,
	}
}

// findOrCreateCompany resolves by normalized name, then by alias, then inserts.
func (a *dealIdentityAggregate) findOrCreateCompany(dbc dbctx.Context, name, normalized string, now time.Time) (*types.Company, error) {
	company, err := a.deps.Repos.Companies.GetByNormalizedName(dbc, normalized)
	if err != nil || company != nil {
		return company, err
	}
	alias, err := a.deps.Repos.Aliases.GetByNormalized(dbc, normalized)
	if err != nil {
		return nil, err
	}
	if alias != nil {
		found, err := a.deps.Repos.Companies.GetByIDs(dbc, []uuid.UUID{alias.CompanyID})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found[0], nil
		}
	}

	company = &types.Company{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: normalized,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	inserted, err := a.deps.Repos.Companies.InsertIfAbsent(dbc, company)
	if err != nil {
		return nil, err
	}
	if inserted {
		return company, nil
	}
	company, err = a.deps.Repos.Companies.GetByNormalizedName(dbc, normalized)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, RetryableError("company insert conflicted but existing company not visible")
	}
	return company, nil
}

func (a *dealIdentityAggregate) RegisterAlias(ctx context.Context, in RegisterAliasInput) (RegisterAliasResult, error) {
	companyName := strings.TrimSpace(in.CompanyName)
	aliasName := strings.TrimSpace(in.Alias)
	companyNorm := normalization.NormalizeName(companyName)
	aliasNorm := normalization.NormalizeName(aliasName)
	switch {
	case companyNorm == "" || aliasNorm == "":
		return RegisterAliasResult{}, domainagg.NewError(domainagg.CodeValidation, opRegisterAlias, "company and alias names are required", nil)
	case companyNorm == aliasNorm:
		return RegisterAliasResult{}, domainagg.NewError(domainagg.CodeValidation, opRegisterAlias, "alias normalizes to the company name", nil)
	case !in.Kind.Valid():
		return RegisterAliasResult{}, domainagg.NewError(domainagg.CodeValidation, opRegisterAlias, "unknown alias kind "+string(in.Kind), nil)
	}

	var out RegisterAliasResult
	err := executeWrite(ctx, a.deps.BaseDeps, opRegisterAlias, func(dbc dbctx.Context) error {
		now := a.deps.Now()
		company, err := a.findOrCreateCompany(dbc, companyName, companyNorm, now)
		if err != nil {
			return err
		}
		var effective *time.Time
		if in.EffectiveDate != nil {
			d := deals.TruncateDay(*in.EffectiveDate)
			effective = &d
		}
		alias := &types.CompanyAlias{
			ID:              uuid.New(),
			CompanyID:       company.ID,
			Alias:           aliasName,
			NormalizedAlias: aliasNorm,
			Kind:            in.Kind,
			EffectiveDate:   effective,
			CreatedAt:       now,
		}
		inserted, err := a.deps.Repos.Aliases.InsertIfAbsent(dbc, alias)
		if err != nil {
			return err
		}
		out = RegisterAliasResult{CompanyID: company.ID, AliasID: alias.ID, Created: inserted}
		if !inserted {
			existing, err := a.deps.Repos.Aliases.GetByCompanyAndNormalized(dbc, company.ID, aliasNorm)
			if err != nil {
				return err
			}
			if existing != nil {
				out.AliasID = existing.ID
			}
		}
		return nil
	})
	if err != nil {
		return RegisterAliasResult{}, err
	}
	return out, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
