package services

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"wordrace/domain/entities"
)

// jsonAnswer is the schema models are asked to return in json output mode.
type jsonAnswer struct {
	Answer string `json:"answer"`
}

// ExtractAnswer pulls the "answer" field out of a raw JSON object. It is
// lenient about surrounding prose: if the raw string does not parse as-is,
// the first {...} block found in it is tried instead. Returns ok=false on
// parse failure or a non-string/missing field.
func ExtractAnswer(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)

	var parsed jsonAnswer
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed.Answer, parsed.Answer != ""
	}

	// Models wrap JSON in code fences or prose often enough that
	// rejecting outright would punish otherwise-correct answers.
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err == nil {
			return parsed.Answer, parsed.Answer != ""
		}
	}
	return "", false
}

// Normalize applies the canonical normalization pipeline: optional JSON
// answer extraction, whitespace and Unicode punctuation stripping (hyphen
// survives only when allowed), then the case rule. Idempotent.
func Normalize(raw string, outputRule entities.OutputRule, caseRule entities.CaseRule, allowHyphen bool) string {
	s := raw
	if outputRule == entities.OutputJSON {
		extracted, ok := ExtractAnswer(raw)
		if !ok {
			return ""
		}
		s = extracted
	}
	s = stripPunctuation(s, allowHyphen)
	return applyCaseRule(s, caseRule)
}

// stripPunctuation removes whitespace and every code point in the Unicode
// punctuation categories (P*), keeping '-' only when allowHyphen is set.
func stripPunctuation(s string, allowHyphen bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if r == '-' {
			if allowHyphen {
				b.WriteRune(r)
			}
			continue
		}
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyCaseRule cases the string. Title capitalizes the first code point
// only and lowers the rest.
func applyCaseRule(s string, rule entities.CaseRule) string {
	switch rule {
	case entities.CaseUpper:
		return strings.ToUpper(s)
	case entities.CaseTitle:
		if s == "" {
			return s
		}
		first, size := utf8.DecodeRuneInString(s)
		return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
	case entities.CaseAsIs:
		return s
	default:
		return strings.ToLower(s)
	}
}

// ValidateFormat runs normalization and the format check for one attempt.
// format_ok requires: in json mode, a successful parse with a non-empty
// answer; in both modes, a normalized length exactly matching the clue's
// declared length.
func ValidateFormat(raw string, outputRule entities.OutputRule, caseRule entities.CaseRule, allowHyphen bool, length int) (string, bool) {
	if outputRule == entities.OutputJSON {
		if _, ok := ExtractAnswer(raw); !ok {
			return "", false
		}
	}
	normalized := Normalize(raw, outputRule, caseRule, allowHyphen)
	return normalized, utf8.RuneCountInString(normalized) == length
}

// CheckCorrectness compares a normalized output against the canonical
// answer. The canonical side goes through the same pipeline in plain mode
// with hyphens stripped, so equality is byte-for-byte on normalized forms.
func CheckCorrectness(normalized, canonicalAnswer string, caseRule entities.CaseRule) bool {
	canonical := Normalize(canonicalAnswer, entities.OutputPlain, caseRule, false)
	return canonical != "" && normalized == canonical
}
