package utils

import (
	"fmt"
	"math"
)

// FormatSRTTimestamp formats seconds to SRT timestamp format (HH:MM:SS,mmm)
func FormatSRTTimestamp(seconds float64) string {
	d := int(seconds)
	ms := int(math.Round((seconds - float64(d)) * 1000))
	if ms == 1000 {
		d++
		ms = 0
	}

	h := d / 3600
	m := (d % 3600) / 60
	s := d % 60

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatChapterTimestamp formats seconds to the MM:SS form used in
// chapter markers (HH:MM:SS past one hour).
func FormatChapterTimestamp(seconds float64) string {
	d := int(seconds)
	h := d / 3600
	m := (d % 3600) / 60
	s := d % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
