package importer

import (
	"strings"
	"time"

	"github.com/trade-importer/internal/models"
)

// NormalizedTrade is a typed trade candidate produced from one raw row.
// It is never mutated after Parse returns it.
type NormalizedTrade struct {
	Symbol      string
	Direction   models.TradeDirection
	Quantity    float64
	EntryPrice  float64
	ExitPrice   *float64
	EntryDate   time.Time
	ExitDate    *time.Time
	PnL         float64
	Commission  float64
	MAE         float64
	MFE         float64
	DurationSec int64
	Strategy    string
	Account     string
	ExternalRef string
	Notes       string
}

// RecordParser turns raw rows into trade candidates
type RecordParser struct {
	fields     FieldMap
	commission CommissionSchedule
}

// NewRecordParser creates a RecordParser. A nil field map falls back to the
// default alias configuration.
func NewRecordParser(fields FieldMap, commission CommissionSchedule) *RecordParser {
	if fields == nil {
		fields = DefaultFieldMap()
	}
	return &RecordParser{fields: fields, commission: commission}
}

// Parse maps one raw row into a NormalizedTrade. It returns nil when the
// entry date cannot be parsed or the direction cannot be determined, so the
// row is classified as an error downstream instead of being dropped silently.
func (p *RecordParser) Parse(record RawRecord, now time.Time) *NormalizedTrade {
	entryRaw := p.fields.Get(record, FieldEntryDate)
	entryDate, ok := ParseAmbiguousDate(entryRaw, now)
	if !ok {
		return nil
	}

	direction, ok := parseDirection(p.fields.Get(record, FieldDirection))
	if !ok {
		return nil
	}

	t := &NormalizedTrade{
		Symbol:      ExtractSymbol(p.fields.Get(record, FieldSymbol)),
		Direction:   direction,
		EntryDate:   entryDate,
		Strategy:    p.fields.Get(record, FieldStrategy),
		Account:     p.fields.Get(record, FieldAccount),
		ExternalRef: p.fields.Get(record, FieldExternalRef),
		Notes:       p.fields.Get(record, FieldNotes),
	}

	// Unparsable numerics default to 0; the validator decides which of
	// them are fatal for the row.
	t.Quantity, _ = ParseLocaleNumber(p.fields.Get(record, FieldQuantity))
	t.EntryPrice, _ = ParseLocaleNumber(p.fields.Get(record, FieldEntryPrice))
	t.PnL, _ = ParseLocaleNumber(p.fields.Get(record, FieldPnL))
	t.MAE, _ = ParseLocaleNumber(p.fields.Get(record, FieldMAE))
	t.MFE, _ = ParseLocaleNumber(p.fields.Get(record, FieldMFE))

	if v, ok := ParseLocaleNumber(p.fields.Get(record, FieldExitPrice)); ok {
		t.ExitPrice = &v
	}
	if exitDate, ok := ParseAmbiguousDate(p.fields.Get(record, FieldExitDate), now); ok {
		t.ExitDate = &exitDate
		t.DurationSec = int64(exitDate.Sub(entryDate).Seconds())
	}

	t.Commission, _ = ParseLocaleNumber(p.fields.Get(record, FieldCommission))
	if t.Commission == 0 && p.commission != nil && t.Quantity > 0 {
		t.Commission = p.commission.RoundTripRate(t.Symbol) * t.Quantity
	}

	return t
}

func parseDirection(raw string) (models.TradeDirection, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG", "L", "BUY", "B":
		return models.DirectionLong, true
	case "SHORT", "S", "SELL":
		return models.DirectionShort, true
	default:
		return "", false
	}
}
