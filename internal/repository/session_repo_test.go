package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestActiveSessionScope_PlainAggregateQuery(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true, SkipDefaultTransaction: true})
	require.NoError(t, err)

	var active int64
	stmt := activeSessionScope(db, 7, time.Now().Add(-2*time.Minute)).Count(&active).Statement

	sql := strings.ToUpper(stmt.SQL.String())
	assert.Contains(t, sql, "COUNT")
	assert.Contains(t, sql, "USER_ID")
	assert.Contains(t, sql, "STARTED_AT")
	// Postgres rejects row locking combined with aggregate functions, so the
	// guard query must stay lock-free; serialization comes from the advisory
	// lock taken before it.
	assert.NotContains(t, sql, "FOR UPDATE")
}
