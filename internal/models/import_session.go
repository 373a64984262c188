package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SessionStatus represents the lifecycle state of an import session
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionPartial    SessionStatus = "partial"
	SessionFailed     SessionStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionPartial || s == SessionFailed
}

// RowError records a per-row failure inside an import
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// RowErrorList is stored as a JSON column
type RowErrorList []RowError

func (l RowErrorList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *RowErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for RowErrorList")
}

// StringList is stored as a JSON column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for StringList")
}

// ImportSession is the durable record of one import attempt. It doubles as
// the per-user mutual-exclusion token: at most one non-terminal, non-stale
// session may exist per user.
type ImportSession struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Reference     string        `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	UserID        uint          `gorm:"index;not null" json:"user_id"`
	AccountID     uint          `gorm:"index;not null" json:"account_id"`
	Source        string        `gorm:"size:50;not null" json:"source"`
	FileName      string        `gorm:"size:255" json:"file_name"`
	FileSize      int64         `json:"file_size"`
	Status        SessionStatus `gorm:"size:20;not null;index" json:"status"`
	TotalRows     int           `json:"total_rows"`
	ProcessedRows int           `json:"processed_rows"`
	ImportedRows  int           `json:"imported_rows"`
	SkippedRows   int           `json:"skipped_rows"`
	ErrorRows     int           `json:"error_rows"`
	DuplicateRows int           `json:"duplicate_rows"`
	Errors        RowErrorList  `gorm:"type:jsonb" json:"errors"`
	Warnings      StringList    `gorm:"type:jsonb" json:"warnings"`
	StartedAt     time.Time     `gorm:"index" json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Account Account `gorm:"foreignKey:AccountID" json:"-"`
}

// TableName specifies the table name for ImportSession model
func (ImportSession) TableName() string {
	return "import_sessions"
}

// IsStale reports whether the session has been running longer than the given
// window without reaching a terminal status. Stale sessions no longer block
// new imports for the user.
func (s *ImportSession) IsStale(now time.Time, window time.Duration) bool {
	return !s.Status.IsTerminal() && now.Sub(s.StartedAt) > window
}
