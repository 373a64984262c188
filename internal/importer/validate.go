package importer

import (
	"github.com/trade-importer/internal/models"
)

// FieldError describes a single validation failure on a candidate trade
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating one candidate. It is derived
// data and never persisted on its own.
type ValidationResult struct {
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// IsValid reports whether the candidate passed all blocking rules
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validate runs the stateless rule set against a candidate trade.
// Warnings never block the row.
func Validate(t *NormalizedTrade) ValidationResult {
	var res ValidationResult

	if t.Symbol == "" {
		res.Errors = append(res.Errors, FieldError{Field: "symbol", Message: "symbol is required"})
	}
	if t.Direction != models.DirectionLong && t.Direction != models.DirectionShort {
		res.Errors = append(res.Errors, FieldError{Field: "direction", Message: "direction must be LONG or SHORT"})
	}
	if t.Quantity <= 0 {
		res.Errors = append(res.Errors, FieldError{Field: "quantity", Message: "quantity must be greater than zero"})
	}
	if t.EntryPrice <= 0 {
		res.Errors = append(res.Errors, FieldError{Field: "entry_price", Message: "entry price must be greater than zero"})
	}
	if t.EntryDate.IsZero() {
		res.Errors = append(res.Errors, FieldError{Field: "entry_date", Message: "entry date is required"})
	}

	if t.ExitDate != nil && !t.EntryDate.IsZero() && t.ExitDate.Before(t.EntryDate) {
		res.Errors = append(res.Errors, FieldError{Field: "exit_date", Message: "exit date must not precede entry date"})
	}
	if t.ExitPrice != nil && *t.ExitPrice <= 0 {
		res.Errors = append(res.Errors, FieldError{Field: "exit_price", Message: "exit price must be greater than zero"})
	}

	if t.ExitDate == nil {
		res.Warnings = append(res.Warnings, "position appears to be still open")
	}
	if t.Strategy == "" {
		res.Warnings = append(res.Warnings, "no strategy tag")
	}
	if t.Commission == 0 {
		res.Warnings = append(res.Warnings, "zero commission")
	}

	return res
}
