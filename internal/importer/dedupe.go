package importer

import (
	"time"

	"github.com/trade-importer/internal/models"
)

// DedupPolicy selects how entry dates are compared when deciding whether two
// records are the same real-world trade.
type DedupPolicy string

const (
	// PolicyExact requires entry-date equality
	PolicyExact DedupPolicy = "exact"
	// PolicyTolerance accepts entry dates within a window, tolerating export
	// timing jitter for the same underlying trade
	PolicyTolerance DedupPolicy = "tolerance"
)

// DedupKey is the field tuple that identifies a trade within one user/account
type DedupKey struct {
	UserID     uint
	AccountID  uint
	Symbol     string
	Direction  models.TradeDirection
	EntryPrice float64
	Quantity   float64
	EntryDate  time.Time
}

// TradeLookup is the store-side half of duplicate detection
type TradeLookup interface {
	ExistsByDedupKey(key DedupKey) (bool, error)
	ExistsByDedupKeyWithin(key DedupKey, window time.Duration) (bool, error)
}

// Detector pre-checks candidates against previously stored trades. The check
// is an optimization and preview aid only: the store's uniqueness constraint
// is the authoritative guard under concurrent inserts.
type Detector struct {
	lookup    TradeLookup
	policy    DedupPolicy
	tolerance time.Duration
}

// NewDetector creates a Detector. An unknown policy falls back to
// PolicyTolerance with the given window.
func NewDetector(lookup TradeLookup, policy DedupPolicy, tolerance time.Duration) *Detector {
	if policy != PolicyExact {
		policy = PolicyTolerance
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Detector{lookup: lookup, policy: policy, tolerance: tolerance}
}

// IsDuplicate reports whether an already-valid candidate matches a stored trade
func (d *Detector) IsDuplicate(userID, accountID uint, t *NormalizedTrade) (bool, error) {
	key := DedupKey{
		UserID:     userID,
		AccountID:  accountID,
		Symbol:     t.Symbol,
		Direction:  t.Direction,
		EntryPrice: t.EntryPrice,
		Quantity:   t.Quantity,
		EntryDate:  t.EntryDate,
	}

	if d.policy == PolicyExact {
		return d.lookup.ExistsByDedupKey(key)
	}
	return d.lookup.ExistsByDedupKeyWithin(key, d.tolerance)
}
