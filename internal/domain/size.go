package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// HumanSize formats a byte count as "1.2 GB".
func HumanSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// ParseSize converts "100MB", "1.5GB", "512KB" or a bare byte count to bytes.
// Units are binary (1KB = 1024).
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multipliers := []struct {
		suffix string
		mult   float64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}

	mult := 1.0
	num := s
	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			mult = m.mult
			num = strings.TrimSpace(strings.TrimSuffix(s, m.suffix))
			break
		}
	}

	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("parse size %q: negative", s)
	}
	return int64(val * mult), nil
}
