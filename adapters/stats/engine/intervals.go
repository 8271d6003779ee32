package engine

import (
	"math"

	"github.com/montanaflynn/stats"

	domstats "brandtrack/domain/stats"
)

// zCritical is the two-sided 95% critical value of the standard normal.
const zCritical = 1.96

// WilsonInterval computes the Wilson score interval for a binomial
// proportion at 95% confidence. Unlike the Wald approximation it stays
// inside [0,1] and remains non-degenerate at successes = 0 or n, which
// matters for rarely-mentioned brands. A zero total yields (0, 0).
func WilsonInterval(successes, total int) domstats.Interval {
	if total == 0 {
		return domstats.Interval{}
	}

	n := float64(total)
	p := float64(successes) / n
	z2 := zCritical * zCritical

	denom := 1 + z2/n
	centre := p + z2/(2*n)
	spread := zCritical * math.Sqrt((p*(1-p)+z2/(4*n))/n)

	return domstats.Interval{
		Lower: math.Max(0, (centre-spread)/denom),
		Upper: math.Min(1, (centre+spread)/denom),
	}
}

// MeanInterval returns the sample mean and its z-based 95% interval using
// the sample standard deviation. The normal approximation under-covers
// below roughly n = 15; aim for n >= 20 before leaning on these bounds.
// Empty input yields the (0, (0,0)) sentinel, a single observation a
// zero-width interval at the value.
func MeanInterval(values []float64) (float64, domstats.Interval) {
	if len(values) == 0 {
		return 0, domstats.Interval{}
	}

	mean, _ := stats.Mean(values)
	if len(values) == 1 {
		return mean, domstats.Interval{Lower: mean, Upper: mean}
	}

	sd, _ := stats.StandardDeviationSample(values)
	se := sd / math.Sqrt(float64(len(values)))

	return mean, domstats.Interval{Lower: mean - zCritical*se, Upper: mean + zCritical*se}
}
