package alerts

import (
	"context"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type logSink struct {
	log *logger.Logger
}

// NewLogSink writes alerts to the structured log.
func NewLogSink(log *logger.Logger) Sink {
	if log == nil {
		log = logger.NewNop()
	}
	return &logSink{log: log.With("sink", "LogAlertSink")}
}

func (s *logSink) Name() string { return "log" }

func (s *logSink) Send(_ context.Context, a deals.Alert) error {
	s.log.Info("tracked investor led new deal",
		"deal_id", a.DealID,
		"company", a.Company,
		"round", a.Round,
		"amount", a.RawAmount,
		"lead", a.LeadName,
	)
	return nil
}
