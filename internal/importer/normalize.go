package importer

import (
	"strconv"
	"strings"
	"time"
)

// yearCorrectionWindow is how far in the future a parsed date may sit before
// it is assumed to carry the futures contract's expiry year instead of the
// execution year.
const yearCorrectionWindow = 30 * 24 * time.Hour

// ParseLocaleNumber parses a locale-ambiguous numeric string as exported by
// the trading platform, e.g. `-$ 200,00` or `"$ 1.234,56"`. The comma is the
// decimal separator; a minus sign may appear before or after the currency
// symbol. Returns (0, false) when the input is unparsable.
func ParseLocaleNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	negative := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '-':
			negative = true
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune(r)
		case r == '(' || r == ')':
			// accounting-style negative
			negative = true
		default:
			// currency symbols, quotes, spaces
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	// When both separators appear the dot is the thousands separator.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative && v > 0 {
		v = -v
	}
	return v, true
}

// ParseAmbiguousDate parses a `D/M/YYYY H:mm:ss` timestamp whose day/month
// ordering is ambiguous. If the first group is >12 it must be the day; if the
// second group is >12 the second is the day; otherwise month-first is assumed.
// The platform labels timestamps with the futures contract's expiry year, so a
// result more than 30 days in the future of now is shifted back one year.
// Returns (zero, false) on unrecoverable input.
func ParseAmbiguousDate(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	datePart := s
	timePart := ""
	if i := strings.IndexByte(s, ' '); i >= 0 {
		datePart = s[:i]
		timePart = strings.TrimSpace(s[i+1:])
	}

	groups := strings.Split(datePart, "/")
	if len(groups) != 3 {
		return time.Time{}, false
	}
	first, err1 := strconv.Atoi(groups[0])
	second, err2 := strconv.Atoi(groups[1])
	year, err3 := strconv.Atoi(groups[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}

	var day, month int
	switch {
	case first > 12:
		day, month = first, second
	case second > 12:
		day, month = second, first
	default:
		// Both groups <= 12: month-first by default. Lossy, see ParseAmbiguousDate doc.
		month, day = first, second
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute, sec := 0, 0, 0
	if timePart != "" {
		tg := strings.Split(timePart, ":")
		if len(tg) < 2 {
			return time.Time{}, false
		}
		if hour, err1 = strconv.Atoi(tg[0]); err1 != nil {
			return time.Time{}, false
		}
		if minute, err1 = strconv.Atoi(tg[1]); err1 != nil {
			return time.Time{}, false
		}
		if len(tg) >= 3 {
			if sec, err1 = strconv.Atoi(tg[2]); err1 != nil {
				return time.Time{}, false
			}
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		// e.g. 31/02 rolled over
		return time.Time{}, false
	}

	// Contract-year correction
	if t.Sub(now) > yearCorrectionWindow {
		t = t.AddDate(-1, 0, 0)
	}

	return t, true
}
