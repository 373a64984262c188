package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trade-importer/internal/config"
	"github.com/trade-importer/internal/importer"
	"github.com/trade-importer/internal/models"
	"github.com/trade-importer/internal/repository"
)

// fakeTradeStore is an in-memory TradeStore with the same dedup semantics as
// the real repository: exact and windowed lookups plus a unique-key check on
// insert.
type fakeTradeStore struct {
	mu           sync.Mutex
	trades       []models.Trade
	failOnSymbol map[string]error
	skipPrecheck bool
}

func (f *fakeTradeStore) ExistsByDedupKey(key importer.DedupKey) (bool, error) {
	return f.ExistsByDedupKeyWithin(key, 0)
}

func (f *fakeTradeStore) ExistsByDedupKeyWithin(key importer.DedupKey, window time.Duration) (bool, error) {
	if f.skipPrecheck {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matchLocked(key, window), nil
}

func (f *fakeTradeStore) matchLocked(key importer.DedupKey, window time.Duration) bool {
	for _, t := range f.trades {
		if t.UserID == key.UserID && t.AccountID == key.AccountID &&
			t.Symbol == key.Symbol && t.Direction == key.Direction &&
			t.EntryPrice == key.EntryPrice && t.Quantity == key.Quantity {
			diff := t.EntryDate.Sub(key.EntryDate)
			if diff < 0 {
				diff = -diff
			}
			if diff <= window {
				return true
			}
		}
	}
	return false
}

func (f *fakeTradeStore) Create(trade *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOnSymbol[trade.Symbol]; ok {
		return err
	}
	key := importer.DedupKey{
		UserID: trade.UserID, AccountID: trade.AccountID,
		Symbol: trade.Symbol, Direction: trade.Direction,
		EntryPrice: trade.EntryPrice, Quantity: trade.Quantity,
		EntryDate: trade.EntryDate,
	}
	if f.matchLocked(key, 0) {
		return repository.ErrDuplicateTrade
	}
	trade.ID = uint(len(f.trades) + 1)
	f.trades = append(f.trades, *trade)
	return nil
}

// fakeSessionStore is an in-memory SessionStore honoring the idle guard
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uint]*models.ImportSession
	nextID   uint
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uint]*models.ImportSession)}
}

func (f *fakeSessionStore) CreateIfIdle(session *models.ImportSession, staleWindow time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-staleWindow)
	for _, s := range f.sessions {
		if s.UserID == session.UserID && !s.Status.IsTerminal() && s.StartedAt.After(cutoff) {
			return repository.ErrActiveSessionExists
		}
	}
	f.nextID++
	session.ID = f.nextID
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionStore) ApplyProgress(id uint, fn func(*models.ImportSession)) (*models.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	fn(s)
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) GetByReferenceAndUserID(reference string, userID uint) (*models.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Reference == reference && s.UserID == userID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.ImportSession, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ImportSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func newTestService(tradeStore *fakeTradeStore, sessionStore *fakeSessionStore) *ImportService {
	return NewImportService(tradeStore, sessionStore, nil, config.ImportConfig{
		BatchSize:         100,
		DedupPolicy:       "tolerance",
		ToleranceMinutes:  5,
		StaleAfterMinutes: 2,
		DefaultCommission: 2.0,
	}, nil)
}

const exportHeader = "Instrument;L/S;Qty;Avg. entry;Avg. exit;Open time;Close time;Net P&L;Commission\n"

// threeRowFile has 2 valid non-duplicate LONG ES trades and 1 row with zero
// quantity.
const threeRowFile = exportHeader +
	"ES SEP25;Long;2;5.432,25;5.440,50;15/11/2024 09:30:00;15/11/2024 10:15:00;\"$ 825,00\";8,08\n" +
	"ES SEP25;Long;1;5.450,00;5.445,00;15/11/2024 11:00:00;15/11/2024 11:30:00;\"-$ 250,00\";4,04\n" +
	"ES SEP25;Long;0;5.460,00;;15/11/2024 12:00:00;;;\n"

func TestPreviewImport_Scenario(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	summary, err := svc.PreviewImport(context.Background(), []byte(threeRowFile), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Valid)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.Errors)
	assert.Len(t, summary.Rows, 3)

	// Preview never persists and never creates a session
	assert.Empty(t, tradeStore.trades)
	assert.Empty(t, sessionStore.sessions)
}

func TestExecuteImport_Scenario(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.Errors)
	assert.Len(t, tradeStore.trades, 2)

	session, err := svc.GetSession(summary.SessionReference, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPartial, session.Status)
	assert.Equal(t, 3, session.ProcessedRows)
	assert.Equal(t, session.ProcessedRows, session.ImportedRows+session.SkippedRows+session.ErrorRows)
	require.NotNil(t, session.CompletedAt)
	assert.NotEmpty(t, session.Errors)
}

func TestExecuteImport_Idempotence(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	_, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)
	require.Len(t, tradeStore.trades, 2)

	// Re-running the same file imports nothing new
	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Errors)
	assert.Len(t, tradeStore.trades, 2)

	session, err := svc.GetSession(summary.SessionReference, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, session.Status, "nothing imported with rows present")
}

func TestExecuteImport_TerminalStatusMapping(t *testing.T) {
	allValid := exportHeader +
		"ES SEP25;Long;2;5.432,25;;15/11/2024 09:30:00;;;4,04\n" +
		"NQ DEC25;Short;1;21.000,00;;15/11/2024 10:00:00;;;4,04\n"

	allInvalid := exportHeader +
		"ES SEP25;Long;0;5.432,25;;15/11/2024 09:30:00;;;\n" +
		"ES SEP25;sideways;1;5.432,25;;15/11/2024 10:00:00;;;\n"

	tests := []struct {
		name string
		file string
		want models.SessionStatus
	}{
		{"all imported", allValid, models.SessionCompleted},
		{"none imported", allInvalid, models.SessionFailed},
		{"partially imported", threeRowFile, models.SessionPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeTradeStore{}, newFakeSessionStore())
			summary, err := svc.ExecuteImport(context.Background(), []byte(tt.file), "trades.csv", 1, 1)
			require.NoError(t, err)

			session, err := svc.GetSession(summary.SessionReference, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, session.Status)
		})
	}
}

func TestExecuteImport_ConcurrencyGuard(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	// An active session for the user blocks a new import
	sessionStore.sessions[99] = &models.ImportSession{
		ID: 99, Reference: "active", UserID: 1,
		Status: models.SessionProcessing, StartedAt: time.Now(),
	}
	sessionStore.nextID = 99

	_, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Empty(t, tradeStore.trades, "rejected before any row is read")

	// A stale session (non-terminal, older than the window) does not block
	sessionStore.sessions[99].StartedAt = time.Now().Add(-3 * time.Minute)

	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
}

func TestExecuteImport_GuardIsPerUser(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	sessionStore.sessions[99] = &models.ImportSession{
		ID: 99, Reference: "other-user", UserID: 42,
		Status: models.SessionProcessing, StartedAt: time.Now(),
	}
	sessionStore.nextID = 99

	_, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	assert.NoError(t, err, "another user's import must not block")
}

func TestGetProgress_ScopedToOwner(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	progress, err := svc.GetProgress(context.Background(), summary.SessionReference, 1)
	require.NoError(t, err)
	assert.Equal(t, summary.SessionReference, progress.Reference)

	_, err = svc.GetProgress(context.Background(), summary.SessionReference, 2)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound,
		"a session reference must not resolve for a different user")
}

func TestExecuteImport_ConstraintViolationBecomesDuplicate(t *testing.T) {
	// Pre-check is blind, so the insert hits the unique-key error path
	tradeStore := &fakeTradeStore{skipPrecheck: true}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	_, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Duplicates, "constraint violations are duplicate skips, not errors")
	assert.Equal(t, 0, summary.Imported)
}

func TestExecuteImport_RowPersistenceErrorDoesNotAbort(t *testing.T) {
	tradeStore := &fakeTradeStore{failOnSymbol: map[string]error{"NQ": errors.New("disk full")}}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	file := exportHeader +
		"NQ DEC25;Short;1;21.000,00;;15/11/2024 09:30:00;;;4,04\n" +
		"ES SEP25;Long;2;5.432,25;;15/11/2024 10:00:00;;;4,04\n"

	summary, err := svc.ExecuteImport(context.Background(), []byte(file), "trades.csv", 1, 1)
	require.NoError(t, err, "a row-level store failure never aborts the batch")

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Errors)
	assert.Len(t, tradeStore.trades, 1)
	assert.Equal(t, "ES", tradeStore.trades[0].Symbol)
}

func TestExecuteImport_UnreadableFile(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := newTestService(tradeStore, sessionStore)

	_, err := svc.ExecuteImport(context.Background(), []byte("onecolumn\njunk\n"), "trades.csv", 1, 1)
	assert.ErrorIs(t, err, importer.ErrInputFormat)

	// The session created by the guard is closed out as failed
	sessions, _, err := svc.ListSessions(1, 1, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.SessionFailed, sessions[0].Status)
}

func TestExecuteImport_BatchProgress(t *testing.T) {
	tradeStore := &fakeTradeStore{}
	sessionStore := newFakeSessionStore()
	svc := NewImportService(tradeStore, sessionStore, nil, config.ImportConfig{
		BatchSize:         2,
		DedupPolicy:       "exact",
		StaleAfterMinutes: 2,
	}, nil)

	summary, err := svc.ExecuteImport(context.Background(), []byte(threeRowFile), "trades.csv", 1, 1)
	require.NoError(t, err)

	session, err := svc.GetSession(summary.SessionReference, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, session.TotalRows)
	assert.Equal(t, 3, session.ProcessedRows)
	assert.LessOrEqual(t, session.ProcessedRows, session.TotalRows)
}
