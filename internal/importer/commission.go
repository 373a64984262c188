package importer

// CommissionSchedule resolves the per-contract round-trip commission for a
// symbol. Implementations decide how unknown symbols are priced.
type CommissionSchedule interface {
	RoundTripRate(symbol string) float64
}

// RateTable is a static symbol-to-rate schedule with a default for symbols it
// does not know.
type RateTable struct {
	rates       map[string]float64
	defaultRate float64
}

// NewRateTable creates a RateTable. A nil rates map is allowed.
func NewRateTable(rates map[string]float64, defaultRate float64) *RateTable {
	if rates == nil {
		rates = make(map[string]float64)
	}
	return &RateTable{rates: rates, defaultRate: defaultRate}
}

// DefaultRateTable returns the schedule for the common CME futures contracts.
func DefaultRateTable(defaultRate float64) *RateTable {
	return NewRateTable(map[string]float64{
		"ES":  4.04, // E-mini S&P 500
		"NQ":  4.04, // E-mini Nasdaq-100
		"YM":  4.04, // E-mini Dow
		"RTY": 4.04, // E-mini Russell 2000
		"MES": 1.24, // Micro E-mini S&P 500
		"MNQ": 1.24,
		"MYM": 1.24,
		"M2K": 1.24,
		"CL":  4.58, // Crude oil
		"MCL": 1.54,
		"GC":  4.62, // Gold
		"MGC": 1.58,
		"SI":  4.62,
		"ZB":  3.56, // 30-year treasury
		"ZN":  3.26,
	}, defaultRate)
}

// RoundTripRate returns the per-contract round-trip rate for symbol,
// falling back to the default rate for unrecognized symbols.
func (t *RateTable) RoundTripRate(symbol string) float64 {
	if rate, ok := t.rates[symbol]; ok {
		return rate
	}
	return t.defaultRate
}
