// Package normalize canonicalizes item numbers and order references so the
// spellings produced by the three upstream systems (manual entry, ERP export,
// shipment manifest) compare equal. All helpers are purely syntactic and
// idempotent.
package normalize

import (
	"regexp"
	"strings"
)

var (
	purchaseOrderRe = regexp.MustCompile(`PURCHASE\s*ORDER`)
	itemJunkRe      = regexp.MustCompile(`[ .\-]`)
	digitRunRe      = regexp.MustCompile(`\d+`)
)

// Item standardizes a part number: surrounding whitespace is trimmed, the
// ".0" float-promotion artifact left by spreadsheet exports is dropped,
// internal spaces, dots and dashes are removed, and the result is
// uppercased. Two item numbers name the same part iff their normalized
// forms are equal.
func Item(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, ".0") {
		s = s[:len(s)-2]
	}
	s = itemJunkRe.ReplaceAllString(s, "")
	return strings.ToUpper(s)
}

// Order produces a canonical order key robust to zero padding and the two
// historical numbering schemes. The "04" prefix is a retired internal code
// that maps onto "26PAG".
func Order(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = purchaseOrderRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")

	if strings.HasPrefix(s, "04") {
		s = "26PAG" + s[2:]
	}

	prefix, digits, ok := splitTrailingDigits(s)
	if !ok {
		return s
	}
	return prefix + strings.TrimLeft(digits, "0")
}

// splitTrailingDigits divides s into everything before its trailing digit
// run and the run itself. ok is false when s does not end in a digit.
func splitTrailingDigits(s string) (prefix, digits string, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, "", false
	}
	return s[:i], s[i:], true
}

// DigitRuns returns every maximal run of digits in s, in order.
func DigitRuns(s string) []string {
	return digitRunRe.FindAllString(s, -1)
}

// LastDigitRun returns the final digit run in s with leading zeros
// stripped, or "" when s contains no digits. This is the loose comparison
// key used when order references disagree on prefix scheme ("26PAG052"
// vs "04 52" both yield "52").
func LastDigitRun(s string) string {
	runs := DigitRuns(s)
	if len(runs) == 0 {
		return ""
	}
	return strings.TrimLeft(runs[len(runs)-1], "0")
}

// FoldItem is the zero-tolerant item comparison key: a padded stored value
// must match an unpadded input and vice versa, whether the padding sits at
// the front ("000123") or after an alpha prefix ("ABC0001").
func FoldItem(itemNo string) string {
	s := Item(itemNo)
	prefix, digits, ok := splitTrailingDigits(s)
	if !ok {
		return s
	}
	return prefix + strings.TrimLeft(digits, "0")
}

// FoldName canonicalizes a customer name for equality checks only.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
