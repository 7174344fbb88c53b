package ctxutil

import (
	"context"
	"testing"
)

func TestRecordDataRoundTrip(t *testing.T) {
	if GetRecordData(context.Background()) != nil {
		t.Fatalf("empty context should carry no record data")
	}
	ctx := WithRecordData(context.Background(), &RecordData{Origin: "deal-candidates[0]@42", Key: "k"})
	rd := GetRecordData(ctx)
	if rd == nil || rd.Origin != "deal-candidates[0]@42" || rd.Key != "k" {
		t.Fatalf("unexpected record data %+v", rd)
	}
}
