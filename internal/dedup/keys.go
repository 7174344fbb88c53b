package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
)

const (
	dateBucketDays   = 3
	nodateBucketDays = 7
	secondsPerDay    = 86400
)

// KeyBuilder derives the persisted dedup keys. The format is stored in the deal
// table and must not change between releases.
type KeyBuilder struct {
	now func() time.Time
}

// NewKeyBuilder takes the clock used for the dateless bucket; nil means time.Now.
func NewKeyBuilder(now func() time.Time) *KeyBuilder {
	if now == nil {
		now = time.Now
	}
	return &KeyBuilder{now: now}
}

// PrimaryKey is md5(normalized_name|round|date_bucket) in lowercase hex.
func (b *KeyBuilder) PrimaryKey(normalizedName string, round deals.RoundType, date *time.Time) string {
	return hashKey(normalizedName, string(round), b.DateBucket(date))
}

// AmountKey is md5(normalized_name|amt<bucket>|date_bucket). ok is false when
// the amount is unknown or below MinAmountKey.
func (b *KeyBuilder) AmountKey(normalizedName string, amount *int64, date *time.Time) (string, bool) {
	if amount == nil || *amount < normalization.MinAmountKey {
		return "", false
	}
	return hashKey(normalizedName, fmt.Sprintf("amt%d", AmountBucket(*amount)), b.DateBucket(date)), true
}

// DateBucket groups dates into 3-day windows. Undated records share a bucket per
// calendar week of the current clock.
func (b *KeyBuilder) DateBucket(date *time.Time) string {
	if date == nil || date.IsZero() {
		return fmt.Sprintf("nodate_%d", floorDiv(epochDays(b.now()), nodateBucketDays))
	}
	return fmt.Sprintf("%d", floorDiv(epochDays(*date), dateBucketDays))
}

// AmountBucket is a step function with five regimes. Offsets keep bucket
// numbers increasing across regime boundaries.
func AmountBucket(amount int64) int64 {
	switch {
	case amount < 1_000_000:
		return amount / 250_000
	case amount < 10_000_000:
		return 4 + (amount-1_000_000)/500_000
	case amount < 100_000_000:
		return 22 + (amount-10_000_000)/5_000_000
	case amount < 1_000_000_000:
		return 40 + (amount-100_000_000)/50_000_000
	default:
		return 58 + (amount-1_000_000_000)/500_000_000
	}
}

func hashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func epochDays(t time.Time) int64 {
	return floorDiv(deals.TruncateDay(t).Unix(), secondsPerDay)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
