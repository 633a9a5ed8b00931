package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPopupTextChars = 20
	maxPopupTextChars = 500
)

type suspiciousPattern struct {
	phrase string
	re     *regexp.Regexp
}

// suspiciousPatterns is the curated urgency/verification/credential set. A
// popup without form fields must match at least one to be worth scanning.
// Multi-word patterns tolerate intervening words or whitespace so phrasing
// like "your account is locked" still matches.
var suspiciousPatterns = []suspiciousPattern{
	{"urgent", regexp.MustCompile(`(?i)urgent`)},
	{"verify", regexp.MustCompile(`(?i)verify`)},
	{"suspended", regexp.MustCompile(`(?i)suspended`)},
	{"account locked", regexp.MustCompile(`(?i)account.*locked`)},
	{"credit card", regexp.MustCompile(`(?i)credit\s*card`)},
	{"social security", regexp.MustCompile(`(?i)social\s*security`)},
	{"aadhar", regexp.MustCompile(`(?i)aadhar`)},
	{"pan card", regexp.MustCompile(`(?i)pan\s*card`)},
	{"otp", regexp.MustCompile(`(?i)otp`)},
	{"cvv", regexp.MustCompile(`(?i)cvv`)},
}

// MatchPhrases returns the suspicious phrases present in text,
// case-insensitive.
func MatchPhrases(text string) []string {
	var matched []string
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(text) {
			matched = append(matched, p.phrase)
		}
	}
	return matched
}

// EligiblePopup decides whether a collected popup warrants a scan: enough
// text to classify, and either form-like inputs or a suspicious phrase.
func EligiblePopup(p Popup) bool {
	text := strings.TrimSpace(p.Text)
	if utf8.RuneCountInString(text) < minPopupTextChars {
		return false
	}
	if p.HasInputs {
		return true
	}
	return len(MatchPhrases(text)) > 0
}

// TruncatePopupText caps popup text at the wire limit, counted in runes so
// a multi-byte character is never split into invalid UTF-8.
func TruncatePopupText(text string) string {
	if utf8.RuneCountInString(text) <= maxPopupTextChars {
		return text
	}
	seen := 0
	for i := range text {
		if seen == maxPopupTextChars {
			return text[:i]
		}
		seen++
	}
	return text
}
