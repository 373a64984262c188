package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/trade-importer/internal/config"
	"github.com/trade-importer/internal/importer"
	"github.com/trade-importer/internal/models"
	"github.com/trade-importer/internal/repository"
)

var (
	// ErrImportInProgress means another import is already running for the user
	ErrImportInProgress = errors.New("an import is already in progress for this user")
)

// TradeStore is the persistence contract the executor needs for trades.
// Create must report a dedup-index violation as repository.ErrDuplicateTrade.
type TradeStore interface {
	importer.TradeLookup
	Create(trade *models.Trade) error
}

// SessionStore is the persistence contract for import sessions
type SessionStore interface {
	CreateIfIdle(session *models.ImportSession, staleWindow time.Duration) error
	ApplyProgress(id uint, fn func(*models.ImportSession)) (*models.ImportSession, error)
	GetByReferenceAndUserID(reference string, userID uint) (*models.ImportSession, error)
	GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.ImportSession, int64, error)
}

// RowStatus classifies the outcome of one row
type RowStatus string

const (
	RowValid     RowStatus = "valid" // preview only
	RowImported  RowStatus = "imported"
	RowDuplicate RowStatus = "duplicate"
	RowError     RowStatus = "error"
)

// RowResult is the per-row outcome returned by preview and execute
type RowResult struct {
	Row      int                   `json:"row"`
	Status   RowStatus             `json:"status"`
	Symbol   string                `json:"symbol,omitempty"`
	Errors   []importer.FieldError `json:"errors,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// ImportSummary is the aggregate result of a preview or execute run
type ImportSummary struct {
	SessionReference string      `json:"session_reference,omitempty"`
	Total            int         `json:"total"`
	Valid            int         `json:"valid,omitempty"`
	Imported         int         `json:"imported"`
	Duplicates       int         `json:"duplicates"`
	Errors           int         `json:"errors"`
	Rows             []RowResult `json:"rows"`
}

// ImportService drives parsing, validation, duplicate detection and
// persistence across a whole file and owns the import session lifecycle.
type ImportService struct {
	tradeStore   TradeStore
	sessionStore SessionStore
	parser       *importer.RecordParser
	detector     *importer.Detector
	progress     *ProgressCache

	batchSize   int
	staleWindow time.Duration
	source      string
}

// NewImportService creates an ImportService wired from config
func NewImportService(
	tradeStore TradeStore,
	sessionStore SessionStore,
	progress *ProgressCache,
	cfg config.ImportConfig,
	fields importer.FieldMap,
) *ImportService {
	schedule := importer.DefaultRateTable(cfg.DefaultCommission)
	detector := importer.NewDetector(
		tradeStore,
		importer.DedupPolicy(cfg.DedupPolicy),
		time.Duration(cfg.ToleranceMinutes)*time.Minute,
	)
	if progress == nil {
		progress = NewProgressCache(nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.StaleAfterMinutes <= 0 {
		cfg.StaleAfterMinutes = 2
	}
	return &ImportService{
		tradeStore:   tradeStore,
		sessionStore: sessionStore,
		parser:       importer.NewRecordParser(fields, schedule),
		detector:     detector,
		progress:     progress,
		batchSize:    cfg.BatchSize,
		staleWindow:  time.Duration(cfg.StaleAfterMinutes) * time.Minute,
		source:       "trade-export",
	}
}

// PreviewImport runs the full pipeline without persisting anything and
// without creating a durable session, so users can inspect the expected
// outcome before committing.
func (s *ImportService) PreviewImport(ctx context.Context, fileBytes []byte, userID, accountID uint) (*ImportSummary, error) {
	records, err := importer.ReadRecords(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summary := &ImportSummary{Total: len(records)}

	for i, record := range records {
		result, _ := s.classifyRow(i+1, record, userID, accountID, now)
		if result.Status == RowImported {
			result.Status = RowValid
			summary.Valid++
		}
		switch result.Status {
		case RowDuplicate:
			summary.Duplicates++
		case RowError:
			summary.Errors++
		}
		summary.Rows = append(summary.Rows, result)
	}

	return summary, nil
}

// ExecuteImport runs the pipeline and commits accepted rows. Only an
// unreadable file or a concurrent-import conflict abort the whole operation;
// every other failure is isolated to its row.
func (s *ImportService) ExecuteImport(ctx context.Context, fileBytes []byte, fileName string, userID, accountID uint) (*ImportSummary, error) {
	session := &models.ImportSession{
		Reference: uuid.New().String(),
		UserID:    userID,
		AccountID: accountID,
		Source:    s.source,
		FileName:  fileName,
		FileSize:  int64(len(fileBytes)),
		Status:    models.SessionPending,
		StartedAt: time.Now(),
	}

	// The session row is the per-user mutual-exclusion token. Reject before
	// reading a single row if another import is active.
	if err := s.sessionStore.CreateIfIdle(session, s.staleWindow); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, ErrImportInProgress
		}
		return nil, err
	}

	records, err := importer.ReadRecords(bytes.NewReader(fileBytes))
	if err != nil {
		s.failSession(ctx, session.ID, userID, err)
		return nil, err
	}

	now := time.Now()
	total := len(records)

	updated, perr := s.sessionStore.ApplyProgress(session.ID, func(sess *models.ImportSession) {
		sess.Status = models.SessionProcessing
		sess.TotalRows = total
	})
	if perr != nil {
		return nil, perr
	}
	s.progress.Set(ctx, userID, ProgressFromSession(updated))

	summary := &ImportSummary{SessionReference: session.Reference, Total: total}

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}

		batch := make([]RowResult, 0, end-start)
		for i := start; i < end; i++ {
			result, trade := s.classifyRow(i+1, records[i], userID, accountID, now)
			if result.Status == RowImported {
				result = s.persistRow(trade, session.ID, userID, accountID, result)
			}
			batch = append(batch, result)
			summary.Rows = append(summary.Rows, result)
		}

		updated, perr = s.sessionStore.ApplyProgress(session.ID, func(sess *models.ImportSession) {
			applyBatch(sess, batch)
		})
		if perr != nil {
			// Progress bookkeeping failed; the rows themselves are already
			// committed. Record and keep going.
			log.Printf("[ERROR] import %s: failed to persist progress: %v", session.Reference, perr)
			continue
		}
		s.progress.Set(ctx, userID, ProgressFromSession(updated))
	}

	final, perr := s.sessionStore.ApplyProgress(session.ID, func(sess *models.ImportSession) {
		finishSession(sess)
	})
	if perr != nil {
		return nil, perr
	}
	s.progress.Set(ctx, userID, ProgressFromSession(final))

	summary.Imported = final.ImportedRows
	summary.Duplicates = final.DuplicateRows
	summary.Errors = final.ErrorRows

	log.Printf("[INFO] import %s finished: status=%s total=%d imported=%d duplicates=%d errors=%d",
		session.Reference, final.Status, final.TotalRows, final.ImportedRows, final.DuplicateRows, final.ErrorRows)

	return summary, nil
}

// classifyRow runs the pipeline for one row. Outcome priority: parse
// failure, then validation failure, then duplicate, then importable.
func (s *ImportService) classifyRow(rowNum int, record importer.RawRecord, userID, accountID uint, now time.Time) (RowResult, *importer.NormalizedTrade) {
	trade := s.parser.Parse(record, now)
	if trade == nil {
		return RowResult{
			Row:    rowNum,
			Status: RowError,
			Errors: []importer.FieldError{{Message: "row could not be parsed: missing entry date or direction"}},
		}, nil
	}

	validation := importer.Validate(trade)
	if !validation.IsValid() {
		return RowResult{
			Row:      rowNum,
			Status:   RowError,
			Symbol:   trade.Symbol,
			Errors:   validation.Errors,
			Warnings: validation.Warnings,
		}, trade
	}

	dup, err := s.detector.IsDuplicate(userID, accountID, trade)
	if err != nil {
		// Pre-check is advisory; if the lookup fails, fall through to the
		// insert and let the unique index decide.
		log.Printf("[ERROR] duplicate pre-check failed for row %d: %v", rowNum, err)
		dup = false
	}
	if dup {
		return RowResult{Row: rowNum, Status: RowDuplicate, Symbol: trade.Symbol}, trade
	}

	return RowResult{Row: rowNum, Status: RowImported, Symbol: trade.Symbol, Warnings: validation.Warnings}, trade
}

// persistRow inserts an accepted candidate. A dedup-constraint violation is
// reclassified as a duplicate skip; any other store failure becomes a row
// error and processing continues.
func (s *ImportService) persistRow(trade *importer.NormalizedTrade, sessionID, userID, accountID uint, result RowResult) RowResult {
	model := &models.Trade{
		UserID:      userID,
		AccountID:   accountID,
		SessionID:   sessionID,
		Symbol:      trade.Symbol,
		Direction:   trade.Direction,
		Quantity:    trade.Quantity,
		EntryPrice:  trade.EntryPrice,
		ExitPrice:   trade.ExitPrice,
		EntryDate:   trade.EntryDate,
		ExitDate:    trade.ExitDate,
		PnL:         trade.PnL,
		Commission:  trade.Commission,
		MAE:         trade.MAE,
		MFE:         trade.MFE,
		DurationSec: trade.DurationSec,
		Strategy:    trade.Strategy,
		ExternalRef: trade.ExternalRef,
		Notes:       trade.Notes,
	}

	err := s.tradeStore.Create(model)
	switch {
	case err == nil:
		return result
	case errors.Is(err, repository.ErrDuplicateTrade):
		// Lost the race against a concurrent insert; same trade either way.
		return RowResult{Row: result.Row, Status: RowDuplicate, Symbol: trade.Symbol}
	default:
		return RowResult{
			Row:    result.Row,
			Status: RowError,
			Symbol: trade.Symbol,
			Errors: []importer.FieldError{{Message: fmt.Sprintf("failed to save trade: %v", err)}},
		}
	}
}

// applyBatch folds one batch of row results into the session counters
func applyBatch(sess *models.ImportSession, batch []RowResult) {
	for _, r := range batch {
		sess.ProcessedRows++
		switch r.Status {
		case RowImported:
			sess.ImportedRows++
		case RowDuplicate:
			sess.DuplicateRows++
			sess.SkippedRows++
		case RowError:
			sess.ErrorRows++
			for _, e := range r.Errors {
				sess.Errors = append(sess.Errors, models.RowError{Row: r.Row, Field: e.Field, Message: e.Message})
			}
		}
		for _, w := range r.Warnings {
			sess.Warnings = append(sess.Warnings, fmt.Sprintf("row %d: %s", r.Row, w))
		}
	}
}

// finishSession maps final counters onto the terminal status
func finishSession(sess *models.ImportSession) {
	switch {
	case sess.TotalRows > 0 && sess.ImportedRows == 0:
		sess.Status = models.SessionFailed
	case sess.ImportedRows == sess.TotalRows:
		sess.Status = models.SessionCompleted
	default:
		sess.Status = models.SessionPartial
	}
	now := time.Now()
	sess.CompletedAt = &now
}

// failSession marks a session failed before any row was processed
func (s *ImportService) failSession(ctx context.Context, sessionID, userID uint, cause error) {
	final, err := s.sessionStore.ApplyProgress(sessionID, func(sess *models.ImportSession) {
		sess.Status = models.SessionFailed
		sess.Errors = append(sess.Errors, models.RowError{Message: cause.Error()})
		now := time.Now()
		sess.CompletedAt = &now
	})
	if err != nil {
		log.Printf("[ERROR] failed to mark session %d failed: %v", sessionID, err)
		return
	}
	s.progress.Set(ctx, userID, ProgressFromSession(final))
}

// GetProgress returns the current progress for a session, preferring the
// cache and falling back to the session row.
func (s *ImportService) GetProgress(ctx context.Context, reference string, userID uint) (*Progress, error) {
	if p, ok := s.progress.Get(ctx, userID, reference); ok {
		return &p, nil
	}
	session, err := s.sessionStore.GetByReferenceAndUserID(reference, userID)
	if err != nil {
		return nil, err
	}
	p := ProgressFromSession(session)
	return &p, nil
}

// GetSession returns a session by its public reference
func (s *ImportService) GetSession(reference string, userID uint) (*models.ImportSession, error) {
	return s.sessionStore.GetByReferenceAndUserID(reference, userID)
}

// ListSessions returns a user's sessions, newest first
func (s *ImportService) ListSessions(userID uint, page, pageSize int) ([]models.ImportSession, int64, error) {
	return s.sessionStore.GetByUserIDPaginated(userID, page, pageSize)
}
