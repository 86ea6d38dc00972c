package service

import (
	"fmt"
	"strings"
)

const (
	AllLogsSheet = "All Logs"
	SummarySheet = "Summary"
	// DefaultLabelMaxLength keeps per-keyword sheet names under the 31 character workbook limit.
	DefaultLabelMaxLength = 30
	maxSheetNameLength    = 31
)

var illegalSheetChars = strings.NewReplacer(
	"[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_",
)

// AllocateSheetLabels assigns one unique sheet label per keyword. Labels are the
// keyword truncated to maxLength; labels that collide case-insensitively with an
// earlier label or a reserved sheet get a "~N" suffix.
func AllocateSheetLabels(keywords []string, maxLength int) []string {
	if maxLength <= 0 || maxLength > maxSheetNameLength {
		maxLength = DefaultLabelMaxLength
	}
	taken := map[string]bool{
		strings.ToLower(AllLogsSheet): true,
		strings.ToLower(SummarySheet): true,
	}
	labels := make([]string, len(keywords))
	for i, keyword := range keywords {
		base := illegalSheetChars.Replace(keyword)
		base = strings.Trim(base, "'")
		if base == "" {
			base = "keyword"
		}
		label := truncateRunes(base, maxLength)
		for n := 2; taken[strings.ToLower(label)]; n++ {
			suffix := fmt.Sprintf("~%d", n)
			label = truncateRunes(base, maxLength-len(suffix)) + suffix
		}
		taken[strings.ToLower(label)] = true
		labels[i] = label
	}
	return labels
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
