package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trade-importer/internal/models"
)

const (
	progressKeyPrefix = "import:progress:"
	progressTTL       = 10 * time.Minute
)

// Progress is the snapshot polled by clients while an import runs
type Progress struct {
	Reference     string               `json:"reference"`
	Status        models.SessionStatus `json:"status"`
	TotalRows     int                  `json:"total_rows"`
	ProcessedRows int                  `json:"processed_rows"`
	ImportedRows  int                  `json:"imported_rows"`
	SkippedRows   int                  `json:"skipped_rows"`
	ErrorRows     int                  `json:"error_rows"`
	DuplicateRows int                  `json:"duplicate_rows"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ProgressFromSession builds a Progress snapshot from a session row
func ProgressFromSession(s *models.ImportSession) Progress {
	return Progress{
		Reference:     s.Reference,
		Status:        s.Status,
		TotalRows:     s.TotalRows,
		ProcessedRows: s.ProcessedRows,
		ImportedRows:  s.ImportedRows,
		SkippedRows:   s.SkippedRows,
		ErrorRows:     s.ErrorRows,
		DuplicateRows: s.DuplicateRows,
		UpdatedAt:     time.Now(),
	}
}

// ProgressCache keeps per-session progress in Redis so pollers do not hit
// the database after every batch. The session row stays the source of truth;
// the cache is best effort and reads fall back to the store.
type ProgressCache struct {
	rdb *redis.Client
}

// NewProgressCache creates a ProgressCache. A nil client disables caching.
func NewProgressCache(rdb *redis.Client) *ProgressCache {
	return &ProgressCache{rdb: rdb}
}

// progressKey scopes cache entries to the owning user, so a cache hit
// carries the same ownership check as the session row it mirrors.
func progressKey(userID uint, reference string) string {
	return fmt.Sprintf("%s%d:%s", progressKeyPrefix, userID, reference)
}

// Set stores a progress snapshot. Failures are swallowed: a cold cache only
// costs a database read.
func (c *ProgressCache) Set(ctx context.Context, userID uint, p Progress) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, progressKey(userID, p.Reference), data, progressTTL)
}

// Get returns the cached snapshot for a user's session reference, or false
// on miss
func (c *ProgressCache) Get(ctx context.Context, userID uint, reference string) (Progress, bool) {
	if c == nil || c.rdb == nil {
		return Progress{}, false
	}
	data, err := c.rdb.Get(ctx, progressKey(userID, reference)).Bytes()
	if err != nil {
		return Progress{}, false
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, false
	}
	return p, true
}
