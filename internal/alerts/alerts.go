// Package alerts delivers tracked-investor alerts once the deal that produced
// them has been committed.
package alerts

import (
	"context"
	"errors"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

type Sink interface {
	Name() string
	Send(ctx context.Context, alert deals.Alert) error
}

// Fanout sends to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Send(ctx context.Context, alert deals.Alert) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
