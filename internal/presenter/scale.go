package presenter

import (
	"fmt"

	"github.com/verte-zerg/gaelchart/internal/model"
)

// Tier bounds and colours. Lower bounds are inclusive; the top tier is closed at 100.
var (
	DefaultThresholds = [6]float64{30, 40, 50, 60, 70, 80}

	// Palette is indexed by tier-1, lightest first.
	Palette = [7]string{
		"#fcbba1",
		"#fc9272",
		"#fb6a4a",
		"#ef3b2c",
		"#cb181d",
		"#a50f15",
		"#67000d",
	}
)

// Scale assigns colour tiers by percentage.
type Scale struct {
	Bounds [6]float64
}

// DefaultScale returns the stock tier bounds.
func DefaultScale() Scale {
	return Scale{Bounds: DefaultThresholds}
}

// NewScale builds a Scale from six ascending bounds.
func NewScale(bounds []float64) (Scale, error) {
	if len(bounds) != len(DefaultThresholds) {
		return Scale{}, fmt.Errorf("expected %d tier bounds, got %d", len(DefaultThresholds), len(bounds))
	}
	var s Scale
	for i, b := range bounds {
		if i > 0 && b <= bounds[i-1] {
			return Scale{}, fmt.Errorf("tier bounds must be strictly ascending")
		}
		s.Bounds[i] = b
	}
	return s, nil
}

// Tier returns the bucket for pct.
func (s Scale) Tier(pct float64) model.Tier {
	tier := model.Tier(1)
	for _, b := range s.Bounds {
		if pct >= b {
			tier++
		}
	}
	return tier
}

// Color returns the palette colour for tier.
func Color(tier model.Tier) string {
	idx := int(tier) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(Palette) {
		idx = len(Palette) - 1
	}
	return Palette[idx]
}

// Legend returns "[lo, hi)" labels for each tier, lightest first.
func (s Scale) Legend() []string {
	labels := make([]string, 0, len(Palette))
	lo := 0.0
	for _, b := range s.Bounds {
		labels = append(labels, fmt.Sprintf("%g-%g%%", lo, b))
		lo = b
	}
	return append(labels, fmt.Sprintf("%g-100%%", lo))
}
