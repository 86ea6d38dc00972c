package service

import (
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAllocateSheetLabels(t *testing.T) {
	t.Run("should keep short keywords as they are", func(t *testing.T) {
		labels := AllocateSheetLabels([]string{"ERROR", "disk"}, DefaultLabelMaxLength)
		assert.Equal(t, []string{"ERROR", "disk"}, labels)
	})

	t.Run("should truncate long keywords to the maximum length", func(t *testing.T) {
		keyword := strings.Repeat("x", 45)
		labels := AllocateSheetLabels([]string{keyword}, DefaultLabelMaxLength)
		assert.Equal(t, strings.Repeat("x", 30), labels[0])
	})

	t.Run("should disambiguate keywords that truncate to the same label", func(t *testing.T) {
		prefix := strings.Repeat("a", 30)
		labels := AllocateSheetLabels([]string{prefix + "one", prefix + "two", prefix + "three"}, DefaultLabelMaxLength)
		assert.Equal(t, prefix, labels[0])
		assert.Equal(t, strings.Repeat("a", 28)+"~2", labels[1])
		assert.Equal(t, strings.Repeat("a", 28)+"~3", labels[2])
		for _, label := range labels {
			assert.LessOrEqual(t, utf8.RuneCountInString(label), DefaultLabelMaxLength)
		}
	})

	t.Run("should treat labels differing only in case as colliding", func(t *testing.T) {
		labels := AllocateSheetLabels([]string{"ERROR", "error"}, DefaultLabelMaxLength)
		assert.Equal(t, []string{"ERROR", "error~2"}, labels)
	})

	t.Run("should not reuse the reserved sheet names", func(t *testing.T) {
		labels := AllocateSheetLabels([]string{"summary", "All Logs"}, DefaultLabelMaxLength)
		assert.Equal(t, []string{"summary~2", "All Logs~2"}, labels)
	})

	t.Run("should replace characters that are illegal in sheet names", func(t *testing.T) {
		labels := AllocateSheetLabels([]string{"a/b:c[d]*?\\"}, DefaultLabelMaxLength)
		assert.Equal(t, []string{"a_b_c_d____"}, labels)
	})
}
