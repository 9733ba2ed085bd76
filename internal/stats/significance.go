package stats

import "math"

// MinSampleSize is the minimum number of sends either variant needs before a
// comparison can be significant. Below this the test reports no significance
// no matter how far apart the observed rates are.
const MinSampleSize = 30

// SignificanceThreshold is the two-tailed p-value below which a comparison
// counts as significant (95% confidence).
const SignificanceThreshold = 0.05

// Comparison is the outcome of a two-proportion hypothesis test.
type Comparison struct {
	PValue          float64
	ConfidenceLevel int // 0-100
	Significant     bool
}

// CompareProportions runs a two-proportion z-test on the conversion rates of
// two variants, given each variant's conversion and sent counts. The test is
// symmetric in its arguments.
func CompareProportions(aConv, aSent, bConv, bSent int) Comparison {
	if aSent < MinSampleSize || bSent < MinSampleSize {
		return Comparison{PValue: 1, ConfidenceLevel: 0, Significant: false}
	}

	pA := float64(aConv) / float64(aSent)
	pB := float64(bConv) / float64(bSent)

	// Pooled proportion under the null hypothesis (pA = pB)
	pooled := float64(aConv+bConv) / float64(aSent+bSent)

	// Standard error of the difference
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aSent) + 1/float64(bSent)))
	if se == 0 {
		// Pooled proportion of 0 or 1 means both rates are identical.
		return Comparison{PValue: 1, ConfidenceLevel: 0, Significant: false}
	}

	z := math.Abs(pA-pB) / se

	// Two-tailed p-value
	p := 2 * (1 - normalCDF(z))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return Comparison{
		PValue:          p,
		ConfidenceLevel: int(math.Round((1 - p) * 100)),
		Significant:     p < SignificanceThreshold,
	}
}

// normalCDF approximates the cumulative distribution function
// of the standard normal distribution.
func normalCDF(x float64) float64 {
	// Use the approximation from Abramowitz and Stegun
	// Handbook of Mathematical Functions, formula 7.1.26
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
