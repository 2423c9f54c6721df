package media

import "strings"

// Quality is a named tuning bundle trading compression ratio against
// processing speed.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

var allQualities = []Quality{QualityHigh, QualityMedium, QualityLow}

// Qualities returns the supported quality presets in display order.
func Qualities() []Quality {
	cp := make([]Quality, len(allQualities))
	copy(cp, allQualities)
	return cp
}

// DefaultQuality is assigned to every job at registration; callers may
// change it while the job is still pending.
const DefaultQuality = QualityMedium

// ParseQuality converts a string into a known Quality.
func ParseQuality(value string) (Quality, bool) {
	normalized := Quality(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case QualityHigh, QualityMedium, QualityLow:
		return normalized, true
	default:
		return "", false
	}
}

// String implements fmt.Stringer.
func (q Quality) String() string {
	return string(q)
}

// SimulatedSpeedLabel is the speed metadata reported by the simulated
// pipeline for a preset. Real conversions report the engine's measured
// speed instead; the label is the only caller-visible difference between
// the two modes.
func (q Quality) SimulatedSpeedLabel() string {
	switch q {
	case QualityHigh:
		return "0.8x"
	case QualityLow:
		return "1.8x"
	default:
		return "1.2x"
	}
}
