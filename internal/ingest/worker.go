package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yungbote/dealwatch-backend/internal/alerts"
	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/filings"
	"github.com/yungbote/dealwatch-backend/internal/observability"
	"github.com/yungbote/dealwatch-backend/internal/platform/cache"
	"github.com/yungbote/dealwatch-backend/internal/platform/ctxutil"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

// Resolver is the write path a record is handed to.
type Resolver interface {
	Resolve(ctx context.Context, in domainagg.ResolveDealInput) (domainagg.ResolveDealResult, error)
}

const (
	StatusResolved  = "resolved"
	StatusDuplicate = "duplicate"
	StatusInvalid   = "invalid"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

type Config struct {
	Concurrency  int
	RatePerSec   float64
	Burst        int
	MaxAttempts  int
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Burst < 1 {
		c.Burst = c.Concurrency
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	return c
}

// Result is what happened to one record.
type Result struct {
	Record     *Record
	Status     string
	Resolution domainagg.ResolveDealResult
	Err        error
}

type Deps struct {
	Resolver Resolver
	Filings  filings.Source
	Seen     cache.Cache
	Alerts   alerts.Sink
	Metrics  *observability.Metrics
	Log      *logger.Logger
	OnResult func(Result)
}

type Worker struct {
	cfg     Config
	deps    Deps
	log     *logger.Logger
	limiter *rate.Limiter
}

func NewWorker(cfg Config, deps Deps) (*Worker, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Filings == nil {
		deps.Filings = filings.Nop{}
	}
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Worker{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Log.With("component", "IngestWorker"),
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}, nil
}

// Run drains src with a bounded pool. It returns nil at io.EOF and the first
// record failure otherwise; that record is left uncommitted for redelivery.
func (w *Worker) Run(ctx context.Context, src Source) error {
	w.log.Info("Starting ingest worker pool", "concurrency", w.cfg.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	records := make(chan *Record, w.cfg.Concurrency*2)

	g.Go(func() error {
		defer close(records)
		for {
			rec, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("fetch: %w", err)
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return nil
			}
		}
	})

	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			for rec := range records {
				res := w.Process(gctx, src, rec)
				if w.deps.OnResult != nil {
					w.deps.OnResult(res)
				}
				if res.Status == StatusFailed {
					w.log.Error("record failed, stopping", "worker_id", workerID, "origin", rec.Origin, "error", res.Err)
					return res.Err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		w.log.Info("Ingest worker pool stopped")
	}
	return err
}

// Process resolves one record, commits it, then dispatches any alert.
func (w *Worker) Process(ctx context.Context, src Source, rec *Record) Result {
	res := w.process(ctx, src, rec)
	w.deps.Metrics.IncIngest(res.Status)
	return res
}

func (w *Worker) process(ctx context.Context, src Source, rec *Record) Result {
	out := Result{Record: rec}
	key := recordKey(rec.Value)
	ctx = ctxutil.WithRecordData(ctx, &ctxutil.RecordData{Origin: rec.Origin, Key: rec.Key})

	if w.deps.Seen != nil {
		if _, ok, err := w.deps.Seen.Get(ctx, key); err != nil {
			w.log.Warn("processed-record cache read failed", "error", err)
		} else if ok {
			out.Status = StatusDuplicate
			return w.commit(ctx, src, out)
		}
	}

	var c deals.Candidate
	if err := json.Unmarshal(rec.Value, &c); err != nil {
		w.log.Warn("undecodable candidate record", "origin", rec.Origin, "error", err)
		out.Status, out.Err = StatusInvalid, err
		return w.commit(ctx, src, out)
	}
	if raw := c.AnnouncedDate.Unparsed(); raw != "" {
		w.log.Warn("unrecognised announced date, resolving as undated", "origin", rec.Origin, "announced_date", raw)
	}

	if o, err := w.deps.Filings.Lookup(ctx, c); err != nil {
		w.log.Warn("filing lookup failed", "company", c.Company, "error", err)
	} else if o != nil {
		c.Override = o
	}

	resolution, err := w.resolve(ctx, c)
	if err != nil {
		out.Err = err
		if domainagg.IsCode(err, domainagg.CodeValidation) {
			w.log.Warn("candidate rejected", "origin", rec.Origin, "error", err)
			out.Status = StatusRejected
			return w.commit(ctx, src, out)
		}
		out.Status = StatusFailed
		return out
	}
	out.Status = StatusResolved
	out.Resolution = resolution

	outcome := "linked"
	if resolution.Created {
		outcome = "created"
	}
	w.deps.Metrics.IncResolution(outcome, resolution.Tier)

	out = w.commit(ctx, src, out)
	if out.Status != StatusResolved {
		return out
	}
	if w.deps.Seen != nil {
		if err := w.deps.Seen.Set(ctx, key, resolution.DealID.String()); err != nil {
			w.log.Warn("processed-record cache write failed", "error", err)
		}
	}
	if resolution.Alert != nil {
		w.dispatch(ctx, *resolution.Alert)
	}
	return out
}

func (w *Worker) resolve(ctx context.Context, c deals.Candidate) (domainagg.ResolveDealResult, error) {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return domainagg.ResolveDealResult{}, err
		}
		res, err := w.deps.Resolver.Resolve(ctx, domainagg.ResolveDealInput{Candidate: c})
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !domainagg.ShouldRetry(err) || attempt == w.cfg.MaxAttempts {
			break
		}
		w.log.Debug("retrying resolve", "company", c.Company, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return domainagg.ResolveDealResult{}, ctx.Err()
		case <-time.After(w.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return domainagg.ResolveDealResult{}, lastErr
}

func (w *Worker) commit(ctx context.Context, src Source, out Result) Result {
	if err := src.Commit(ctx, out.Record); err != nil {
		out.Status, out.Err = StatusFailed, fmt.Errorf("commit %s: %w", out.Record.Origin, err)
	}
	return out
}

func (w *Worker) dispatch(ctx context.Context, a deals.Alert) {
	if w.deps.Alerts == nil {
		return
	}
	sink := w.deps.Alerts.Name()
	if err := w.deps.Alerts.Send(ctx, a); err != nil {
		w.log.Warn("alert dispatch failed", "deal_id", a.DealID, "sink", sink, "error", err)
		w.deps.Metrics.IncAlert(sink, "error")
		return
	}
	w.deps.Metrics.IncAlert(sink, "ok")
}

func recordKey(value []byte) string {
	sum := sha1.Sum(value)
	return "rec:" + hex.EncodeToString(sum[:])
}
