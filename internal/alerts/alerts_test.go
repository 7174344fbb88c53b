package alerts

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type spySink struct {
	name string
	err  error
	got  []deals.Alert
}

func (s *spySink) Name() string { return s.name }

func (s *spySink) Send(_ context.Context, a deals.Alert) error {
	s.got = append(s.got, a)
	return s.err
}

func TestFanoutSendsToEverySink(t *testing.T) {
	boom := errors.New("boom")
	a := &spySink{name: "a", err: boom}
	b := &spySink{name: "b"}
	alert := deals.Alert{DealID: uuid.New(), Company: "Nimbus", LeadName: "Sequoia"}

	err := Fanout{a, nil, b}.Send(context.Background(), alert)
	if !errors.Is(err, boom) {
		t.Fatalf("want joined sink error, got %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("every sink should receive the alert: a=%d b=%d", len(a.got), len(b.got))
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	if err := NewLogSink(logger.NewNop()).Send(context.Background(), deals.Alert{}); err != nil {
		t.Fatalf("log sink: %v", err)
	}
}

func TestRedisSinkPublishesToSubscribers(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis alert tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sink, err := NewRedisSink(ctx, logger.NewNop(), addr, "dealwatch-test-alerts")
	if err != nil {
		t.Fatalf("NewRedisSink: %v", err)
	}
	defer sink.Close()

	got := make(chan deals.Alert, 1)
	if err := sink.Subscribe(ctx, func(a deals.Alert) { got <- a }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	want := deals.Alert{DealID: uuid.New(), Company: "Nimbus", Round: deals.RoundSeriesB, LeadName: "Sequoia"}
	if err := sink.Send(ctx, want); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case a := <-got:
		if a.DealID != want.DealID || a.LeadName != want.LeadName {
			t.Fatalf("unexpected alert %+v", a)
		}
	case <-ctx.Done():
		t.Fatalf("alert not received")
	}
}
