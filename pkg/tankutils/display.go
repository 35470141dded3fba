package tankutils

import "math"

// Clamped to 0-100, one decimal
func RoundPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return math.Round(p*10) / 10
}

// No negative values
func RoundLiters(l float64) uint32 {
	if math.IsNaN(l) || l < 0 {
		return 0
	}
	return uint32(math.Round(l))
}

func LitersToM3(l float64) float64 {
	if l < 0 {
		return 0
	}
	return l / 1000 // 1 m³ = 1000 L
}
