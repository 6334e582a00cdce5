package u

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

// FormatDuration formats duration in a more human friendly way
// than time.Duration.String(): no fractions of µs, 2 digits of ms
func FormatDuration(d time.Duration) string {
	s := d.String()
	if unit, ok := strings.CutSuffix(s, "µs"); ok {
		whole, _, _ := strings.Cut(unit, ".")
		return whole + " µs"
	}
	if unit, ok := strings.CutSuffix(s, "ms"); ok {
		whole, frac, hasFrac := strings.Cut(unit, ".")
		if hasFrac && len(frac) > 2 {
			frac = frac[:2]
		}
		if hasFrac {
			return whole + "." + frac + " ms"
		}
		return whole + " ms"
	}
	return s
}
