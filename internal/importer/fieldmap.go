package importer

import "strings"

// RawRecord holds one source row as a header-to-cell mapping. It only lives for
// the duration of a single import pass.
type RawRecord map[string]string

// Logical field names used by the parser
const (
	FieldSymbol      = "symbol"
	FieldDirection   = "direction"
	FieldQuantity    = "quantity"
	FieldEntryPrice  = "entry_price"
	FieldExitPrice   = "exit_price"
	FieldEntryDate   = "entry_date"
	FieldExitDate    = "exit_date"
	FieldPnL         = "pnl"
	FieldCommission  = "commission"
	FieldMAE         = "mae"
	FieldMFE         = "mfe"
	FieldStrategy    = "strategy"
	FieldAccount     = "account"
	FieldExternalRef = "external_ref"
	FieldNotes       = "notes"
)

// FieldMap maps a logical field to an ordered list of acceptable column
// names. Export headers vary between platform versions, so the first alias
// with a non-empty cell wins.
type FieldMap map[string][]string

// DefaultFieldMap covers the header variants observed across platform
// export versions. Callers may pass their own map to override it.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		FieldSymbol:      {"Instrument", "Symbol", "Contract", "Market"},
		FieldDirection:   {"L/S", "Side", "Direction", "Type", "B/S"},
		FieldQuantity:    {"Qty", "Quantity", "Size", "Contracts", "filledQty"},
		FieldEntryPrice:  {"Avg. entry", "Entry Price", "Buy Price", "buyPrice", "Price"},
		FieldExitPrice:   {"Avg. exit", "Exit Price", "Sell Price", "sellPrice"},
		FieldEntryDate:   {"Open time", "Entry Time", "boughtTimestamp", "Bought Timestamp", "Entry Date"},
		FieldExitDate:    {"Close time", "Exit Time", "soldTimestamp", "Sold Timestamp", "Exit Date"},
		FieldPnL:         {"Net P&L", "P&L", "pnl", "Profit", "Realized P&L"},
		FieldCommission:  {"Commission", "Commissions", "Fees", "Fee"},
		FieldMAE:         {"MAE", "Max Adverse Excursion"},
		FieldMFE:         {"MFE", "Max Favorable Excursion"},
		FieldStrategy:    {"Strategy", "Setup", "Playbook"},
		FieldAccount:     {"Account", "accountName", "Account Name"},
		FieldExternalRef: {"Trade #", "TradeNumber", "Id", "ID"},
		FieldNotes:       {"Notes", "Comment", "Comments"},
	}
}

// Get returns the first non-empty value among the field's aliases.
// Header matching is case-insensitive and ignores surrounding whitespace.
func (m FieldMap) Get(record RawRecord, field string) string {
	for _, alias := range m[field] {
		if v, ok := record[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		// fall back to a case-insensitive scan for this alias
		for k, v := range record {
			if strings.EqualFold(strings.TrimSpace(k), alias) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
