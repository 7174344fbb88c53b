package ctxutil

import "context"

type recordDataKey struct{}

// RecordData identifies the transport record a unit of work came from.
type RecordData struct {
	Origin string
	Key    string
}

func WithRecordData(ctx context.Context, rd *RecordData) context.Context {
	return context.WithValue(ctx, recordDataKey{}, rd)
}

func GetRecordData(ctx context.Context) *RecordData {
	val := ctx.Value(recordDataKey{})
	if rd, ok := val.(*RecordData); ok {
		return rd
	}
	return nil
}
