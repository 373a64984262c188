package models

import (
	"time"
)

// TradeDirection represents the direction of a trade
type TradeDirection string

const (
	DirectionLong  TradeDirection = "LONG"
	DirectionShort TradeDirection = "SHORT"
)

// Trade represents an imported trade execution record.
// The composite unique index is the authoritative duplicate guard:
// two rows with the same key within one user/account are the same trade.
type Trade struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;uniqueIndex:idx_trades_dedup" json:"user_id"`
	AccountID     uint           `gorm:"not null;uniqueIndex:idx_trades_dedup" json:"account_id"`
	SessionID     uint           `gorm:"index" json:"session_id"`
	Symbol        string         `gorm:"size:20;not null;uniqueIndex:idx_trades_dedup" json:"symbol"`
	Direction     TradeDirection `gorm:"size:10;not null;uniqueIndex:idx_trades_dedup" json:"direction"`
	Quantity      float64        `gorm:"type:decimal(20,8);not null;uniqueIndex:idx_trades_dedup" json:"quantity"`
	EntryPrice    float64        `gorm:"type:decimal(20,8);not null;uniqueIndex:idx_trades_dedup" json:"entry_price"`
	ExitPrice     *float64       `gorm:"type:decimal(20,8)" json:"exit_price,omitempty"`
	EntryDate     time.Time      `gorm:"not null;uniqueIndex:idx_trades_dedup;index" json:"entry_date"`
	ExitDate      *time.Time     `json:"exit_date,omitempty"`
	PnL           float64        `gorm:"type:decimal(20,8)" json:"pnl"`
	Commission    float64        `gorm:"type:decimal(20,8)" json:"commission"`
	MAE           float64        `gorm:"type:decimal(20,8)" json:"mae"`
	MFE           float64        `gorm:"type:decimal(20,8)" json:"mfe"`
	DurationSec   int64          `json:"duration_sec"`
	Strategy      string         `gorm:"size:100" json:"strategy,omitempty"`
	ExternalRef   string         `gorm:"size:100" json:"external_ref,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Relations
	User    User          `gorm:"foreignKey:UserID" json:"-"`
	Account Account       `gorm:"foreignKey:AccountID" json:"-"`
	Session ImportSession `gorm:"foreignKey:SessionID" json:"-"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// IsOpen reports whether the trade has no recorded exit
func (t *Trade) IsOpen() bool {
	return t.ExitDate == nil
}
