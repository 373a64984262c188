package repository

import (
	"errors"
	"time"

	"github.com/trade-importer/internal/importer"
	"github.com/trade-importer/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateTrade is returned when an insert hits the dedup unique index.
// Requires gorm.Config{TranslateError: true} on the connection.
var ErrDuplicateTrade = errors.New("duplicate trade")

// TradeRepository handles trade data access
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a trade. A violation of the dedup unique index is
// reported as ErrDuplicateTrade so callers can reclassify the row as a
// duplicate skip instead of a failure.
func (r *TradeRepository) Create(trade *models.Trade) error {
	err := r.db.Create(trade).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTrade
	}
	return err
}

// ExistsByDedupKey checks for a stored trade with an identical dedup key
func (r *TradeRepository) ExistsByDedupKey(key importer.DedupKey) (bool, error) {
	var count int64
	err := r.db.Model(&models.Trade{}).
		Where("user_id = ? AND account_id = ? AND symbol = ? AND direction = ? AND entry_price = ? AND quantity = ? AND entry_date = ?",
			key.UserID, key.AccountID, key.Symbol, key.Direction, key.EntryPrice, key.Quantity, key.EntryDate).
		Count(&count).Error
	return count > 0, err
}

// ExistsByDedupKeyWithin checks for a stored trade whose entry date falls
// inside ±window of the key's entry date, all other key fields equal
func (r *TradeRepository) ExistsByDedupKeyWithin(key importer.DedupKey, window time.Duration) (bool, error) {
	var count int64
	err := r.db.Model(&models.Trade{}).
		Where("user_id = ? AND account_id = ? AND symbol = ? AND direction = ? AND entry_price = ? AND quantity = ? AND entry_date BETWEEN ? AND ?",
			key.UserID, key.AccountID, key.Symbol, key.Direction, key.EntryPrice, key.Quantity,
			key.EntryDate.Add(-window), key.EntryDate.Add(window)).
		Count(&count).Error
	return count > 0, err
}

// GetByUserAndAccountPaginated retrieves trades for an account with pagination
func (r *TradeRepository) GetByUserAndAccountPaginated(userID, accountID uint, page, pageSize int) ([]models.Trade, int64, error) {
	var trades []models.Trade
	var total int64

	query := r.db.Model(&models.Trade{}).Where("user_id = ? AND account_id = ?", userID, accountID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("user_id = ? AND account_id = ?", userID, accountID).
		Order("entry_date DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&trades)

	return trades, total, result.Error
}
