package importer

import (
	"regexp"
	"strings"
)

// instrumentAliases maps full instrument strings the platform is known to
// emit onto their contract root.
var instrumentAliases = map[string]string{
	"E-MINI S&P 500":        "ES",
	"E-MINI NASDAQ-100":     "NQ",
	"E-MINI DOW":            "YM",
	"E-MINI RUSSELL 2000":   "RTY",
	"MICRO E-MINI S&P 500":  "MES",
	"MICRO E-MINI NASDAQ":   "MNQ",
	"CRUDE OIL":             "CL",
	"MICRO CRUDE OIL":       "MCL",
	"GOLD":                  "GC",
	"MICRO GOLD":            "MGC",
}

// monthSuffixRe matches a contract month/year suffix like " SEP25", " DEC2025"
// or a single-letter month code like " U5".
var monthSuffixRe = regexp.MustCompile(`(?i)\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC|[FGHJKMNQUVXZ])\s*\d{1,4}$`)

// ExtractSymbol reduces an instrument string to its contract root,
// e.g. "ES SEP25" becomes "ES". Known instrument names are resolved through the
// alias table first; otherwise the contract month/year suffix is stripped.
func ExtractSymbol(instrument string) string {
	s := strings.ToUpper(strings.TrimSpace(instrument))
	if s == "" {
		return ""
	}
	if root, ok := instrumentAliases[s]; ok {
		return root
	}
	if stripped := monthSuffixRe.ReplaceAllString(s, ""); stripped != "" {
		return stripped
	}
	return s
}
