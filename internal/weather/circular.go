package weather

import "math"

// resultantEpsilon is the mean-vector length below which the bearings cancel out.
const resultantEpsilon = 1e-9

// CircularMean returns the mean bearing of the given bearings in degrees, in [0, 360).
// Each bearing is treated as a unit vector; the vectors are averaged and the
// bearing of the mean vector returned. ok is false for empty input.
//
// When the vectors cancel out (e.g. 0, 90, 180, 270) the mean is undefined and 0 is
// returned.
func CircularMean(bearings []float64) (mean float64, ok bool) {
	if len(bearings) == 0 {
		return 0, false
	}

	var sumX, sumY float64
	for _, b := range bearings {
		rad := b * math.Pi / 180
		sumX += math.Cos(rad)
		sumY += math.Sin(rad)
	}

	n := float64(len(bearings))
	meanX := sumX / n
	meanY := sumY / n

	if math.Hypot(meanX, meanY) < resultantEpsilon {
		return 0, true
	}

	deg := math.Atan2(meanY, meanX) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg, true
}
