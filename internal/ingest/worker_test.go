package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/observability"
	"github.com/yungbote/dealwatch-backend/internal/platform/cache"
)

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type sliceSource struct {
	j       *journal
	records []*Record
	next    int
	failOn  string
}

func (s *sliceSource) Next(ctx context.Context) (*Record, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.next]
	s.next++
	return r, nil
}

func (s *sliceSource) Commit(_ context.Context, rec *Record) error {
	if rec.Key == s.failOn {
		return errors.New("commit refused")
	}
	s.j.add("commit:" + rec.Key)
	return nil
}

func (s *sliceSource) Close() error { return nil }

type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(c deals.Candidate, call int) (domainagg.ResolveDealResult, error)
}

func (f *fakeResolver) Resolve(_ context.Context, in domainagg.ResolveDealInput) (domainagg.ResolveDealResult, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[in.Candidate.Company]++
	n := f.calls[in.Candidate.Company]
	f.mu.Unlock()
	return f.fn(in.Candidate, n)
}

type spySink struct{ j *journal }

func (s spySink) Name() string { return "spy" }

func (s spySink) Send(_ context.Context, a deals.Alert) error {
	s.j.add("alert:" + a.Company)
	return nil
}

func candidateRecord(t *testing.T, key string, c deals.Candidate) *Record {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return &Record{Key: key, Value: raw, Origin: "test:" + key}
}

func created(c deals.Candidate, _ int) (domainagg.ResolveDealResult, error) {
	res := domainagg.ResolveDealResult{DealID: uuid.New(), Created: true, Linked: true}
	if c.LeadInvestor != "" {
		res.Alert = &deals.Alert{DealID: res.DealID, Company: c.Company, LeadName: c.LeadInvestor}
	}
	return res, nil
}

func newTestWorker(t *testing.T, r Resolver, j *journal, seen cache.Cache, m *observability.Metrics) *Worker {
	t.Helper()
	w, err := NewWorker(Config{Concurrency: 2, RetryBackoff: time.Millisecond}, Deps{
		Resolver: r,
		Seen:     seen,
		Alerts:   spySink{j: j},
		Metrics:  m,
	})
	require.NoError(t, err)
	return w
}

func TestRunCommitsEveryRecordAndAlertsAfterCommit(t *testing.T) {
	j := &journal{}
	src := &sliceSource{j: j, records: []*Record{
		candidateRecord(t, "1", deals.Candidate{Company: "Nimbus", LeadInvestor: "Sequoia", SourceURL: "u1"}),
		candidateRecord(t, "2", deals.Candidate{Company: "Quasar", SourceURL: "u2"}),
	}}
	m := observability.NewMetrics()
	w := newTestWorker(t, &fakeResolver{fn: created}, j, nil, m)

	require.NoError(t, w.Run(context.Background(), src))

	events := j.snapshot()
	require.Contains(t, events, "commit:1")
	require.Contains(t, events, "commit:2")
	require.Contains(t, events, "alert:Nimbus")
	commitIdx, alertIdx := -1, -1
	for i, e := range events {
		switch e {
		case "commit:1":
			commitIdx = i
		case "alert:Nimbus":
			alertIdx = i
		}
	}
	require.Less(t, commitIdx, alertIdx, "alert must follow commit")
	require.Equal(t, float64(2), m.IngestCount(StatusResolved))
	require.Equal(t, float64(2), m.ResolutionCount("created", "none"))
}

func TestProcessSkipsRecordsSeenBefore(t *testing.T) {
	j := &journal{}
	seen, err := cache.NewMemory(cache.Config{Capacity: 16, TTL: time.Minute})
	require.NoError(t, err)
	r := &fakeResolver{fn: created}
	w := newTestWorker(t, r, j, seen, nil)

	rec := candidateRecord(t, "1", deals.Candidate{Company: "Nimbus", SourceURL: "u1"})
	src := &sliceSource{j: j}
	require.Equal(t, StatusResolved, w.Process(context.Background(), src, rec).Status)
	require.Equal(t, StatusDuplicate, w.Process(context.Background(), src, rec).Status)
	require.Equal(t, 1, r.calls["Nimbus"])
	require.Equal(t, []string{"commit:1", "commit:1"}, j.snapshot())
}

func TestProcessRetriesConflicts(t *testing.T) {
	j := &journal{}
	r := &fakeResolver{fn: func(c deals.Candidate, call int) (domainagg.ResolveDealResult, error) {
		if call < 3 {
			return domainagg.ResolveDealResult{}, domainagg.NewError(domainagg.CodeConflict, "resolve", "deal changed concurrently", nil)
		}
		return domainagg.ResolveDealResult{DealID: uuid.New(), Tier: "tier0"}, nil
	}}
	w := newTestWorker(t, r, j, nil, nil)

	res := w.Process(context.Background(), &sliceSource{j: j}, candidateRecord(t, "1", deals.Candidate{Company: "Helix"}))
	require.Equal(t, StatusResolved, res.Status)
	require.Equal(t, 3, r.calls["Helix"])
}

func TestProcessCommitsPoisonRecords(t *testing.T) {
	j := &journal{}
	r := &fakeResolver{fn: func(deals.Candidate, int) (domainagg.ResolveDealResult, error) {
		return domainagg.ResolveDealResult{}, domainagg.NewError(domainagg.CodeValidation, "resolve", "company name is empty", nil)
	}}
	w := newTestWorker(t, r, j, nil, nil)
	src := &sliceSource{j: j}

	bad := &Record{Key: "1", Value: []byte("{not json"), Origin: "test:1"}
	require.Equal(t, StatusInvalid, w.Process(context.Background(), src, bad).Status)

	rejected := w.Process(context.Background(), src, candidateRecord(t, "2", deals.Candidate{Company: " "}))
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, 1, r.calls[" "], "validation errors are not retried")
	require.Equal(t, []string{"commit:1", "commit:2"}, j.snapshot())
}

func TestRunStopsOnFailureWithoutCommitting(t *testing.T) {
	j := &journal{}
	boom := errors.New("db down")
	r := &fakeResolver{fn: func(deals.Candidate, int) (domainagg.ResolveDealResult, error) {
		return domainagg.ResolveDealResult{}, boom
	}}
	w := newTestWorker(t, r, j, nil, nil)
	src := &sliceSource{j: j, records: []*Record{candidateRecord(t, "1", deals.Candidate{Company: "Vireo"})}}

	err := w.Run(context.Background(), src)
	require.ErrorIs(t, err, boom)
	require.Empty(t, j.snapshot())
	require.Equal(t, 1, r.calls["Vireo"])
}

func TestProcessReportsCommitFailure(t *testing.T) {
	j := &journal{}
	w := newTestWorker(t, &fakeResolver{fn: created}, j, nil, nil)
	src := &sliceSource{j: j, failOn: "1"}

	res := w.Process(context.Background(), src, candidateRecord(t, "1", deals.Candidate{Company: "Nimbus", LeadInvestor: "Sequoia"}))
	require.Equal(t, StatusFailed, res.Status)
	require.Empty(t, j.snapshot(), "no alert without a commit")
}

func TestLineSourceSkipsBlankLines(t *testing.T) {
	src := NewLineSource("batch.jsonl", strings.NewReader("{\"company\":\"A\"}\n\n  \n{\"company\":\"B\"}\n"))
	ctx := context.Background()

	a, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "batch.jsonl:1", a.Origin)
	b, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "4", b.Key)
	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestProcessResolvesUnrecognisedDateAsUndated(t *testing.T) {
	j := &journal{}
	var got deals.Candidate
	r := &fakeResolver{fn: func(c deals.Candidate, call int) (domainagg.ResolveDealResult, error) {
		got = c
		return created(c, call)
	}}
	w := newTestWorker(t, r, j, nil, nil)
	rec := &Record{
		Key:    "1",
		Value:  []byte(`{"company":"Torq","round":"Series D","amount":"$140M","announced_date":"mid January 2026","source_url":"u1"}`),
		Origin: "test:1",
	}

	res := w.Process(context.Background(), &sliceSource{j: j}, rec)
	require.Equal(t, StatusResolved, res.Status)
	require.Equal(t, 1, r.calls["Torq"])
	require.Nil(t, got.AnnouncedDate.Ptr())
	require.Equal(t, "mid January 2026", got.AnnouncedDate.Unparsed())
	require.Equal(t, []string{"commit:1"}, j.snapshot())
}
