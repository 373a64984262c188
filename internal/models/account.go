package models

import (
	"time"

	"gorm.io/gorm"
)

// Account represents a trading account that imported trades belong to
type Account struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Broker    string         `gorm:"size:50" json:"broker"`
	Currency  string         `gorm:"size:10;default:'USD'" json:"currency"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User   User    `gorm:"foreignKey:UserID" json:"-"`
	Trades []Trade `gorm:"foreignKey:AccountID" json:"trades,omitempty"`
}

// TableName specifies the table name for Account model
func (Account) TableName() string {
	return "accounts"
}
