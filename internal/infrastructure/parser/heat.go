package parser

import (
	"math"
	"strconv"
	"strings"
)

var heatUnits = []struct {
	suffix string
	factor float64
}{
	{"亿", 1e8},
	{"万", 1e4},
	{"w", 1e4},
	{"W", 1e4},
}

// ParseHeat reads hot-list heat strings such as "123456", "1.2万", "3w" or
// "2亿". It returns nil when the value is empty or not a finite number.
func ParseHeat(raw string) *float64 {
	s := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}

	factor := 1.0
	for _, u := range heatUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSuffix(s, u.suffix)
			factor = u.factor
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v *= factor
	return &v
}
