package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Levene tests the samples for equal variance using deviations from each
// group's median (the Brown-Forsythe variant). NaNs are dropped.
func Levene(samples ...[]float64) (TestResult, error) {
	k := len(samples)
	if k < 2 {
		return TestResult{}, fmt.Errorf("levene needs at least 2 samples, got %d: %w", k, ErrTooFewSamples)
	}

	z := make([][]float64, k)
	zbar := make([]float64, k)
	var total int
	var grand float64
	for i, s := range samples {
		v := sorted(DropNaN(s))
		if len(v) == 0 {
			return TestResult{}, fmt.Errorf("levene: sample %d is empty: %w", i, ErrTooFewSamples)
		}
		med := median(v)
		z[i] = make([]float64, len(v))
		for j, x := range v {
			z[i][j] = math.Abs(x - med)
		}
		zbar[i] = stat.Mean(z[i], nil)
		total += len(v)
		grand += zbar[i] * float64(len(v))
	}
	if total <= k {
		return TestResult{}, fmt.Errorf("levene needs more observations than groups: %w", ErrTooFewSamples)
	}
	grand /= float64(total)

	var between, within float64
	for i := range z {
		d := zbar[i] - grand
		between += float64(len(z[i])) * d * d
		for _, zij := range z[i] {
			within += (zij - zbar[i]) * (zij - zbar[i])
		}
	}
	if within == 0 {
		return TestResult{}, fmt.Errorf("levene: %w", ErrZeroRange)
	}

	d1, d2 := float64(k-1), float64(total-k)
	w := d2 / d1 * between / within
	f := distuv.F{D1: d1, D2: d2}
	return TestResult{Statistic: w, P: f.Survival(w)}, nil
}

// TTestResult adds the degrees of freedom to a t-test result.
type TTestResult struct {
	TestResult
	DF float64 `json:"df"`
}

// TTest is the two-sided independent two-sample t-test. With equalVar it
// is Student's test on the pooled variance, otherwise Welch's test with
// Welch-Satterthwaite degrees of freedom. NaNs are dropped.
func TTest(a, b []float64, equalVar bool) (TTestResult, error) {
	a, b = DropNaN(a), DropNaN(b)
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, fmt.Errorf("t-test needs at least 2 observations per sample: %w", ErrTooFewSamples)
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	var t, df float64
	if equalVar {
		df = n1 + n2 - 2
		sp := ((n1-1)*v1 + (n2-1)*v2) / df
		t = (m1 - m2) / math.Sqrt(sp*(1/n1+1/n2))
	} else {
		q1, q2 := v1/n1, v2/n2
		t = (m1 - m2) / math.Sqrt(q1+q2)
		df = (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	}

	st := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * st.CDF(-math.Abs(t))
	return TTestResult{TestResult: TestResult{Statistic: t, P: p}, DF: df}, nil
}

// MWUMethod says how a Mann-Whitney p-value was computed.
type MWUMethod string

const (
	MWUExact      MWUMethod = "exact"
	MWUAsymptotic MWUMethod = "asymptotic"
)

// MWUResult is a Mann-Whitney U result. Statistic is U for the first
// sample.
type MWUResult struct {
	TestResult
	Method MWUMethod `json:"method"`
}

// MannWhitneyU is the two-sided Mann-Whitney U test. The exact null
// distribution is used when there are no ties and one sample has at most
// eight observations; otherwise the normal approximation with continuity
// and tie correction. NaNs are dropped.
func MannWhitneyU(a, b []float64) (MWUResult, error) {
	a, b = DropNaN(a), DropNaN(b)
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return MWUResult{}, fmt.Errorf("mann-whitney needs non-empty samples: %w", ErrTooFewSamples)
	}

	ranks, tieSizes := rankAll(a, b)
	var r1 float64
	for _, r := range ranks[:n1] {
		r1 += r
	}
	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1
	u := math.Max(u1, u2)

	res := MWUResult{TestResult: TestResult{Statistic: u1}}
	if len(tieSizes) == 0 && (n1 <= 8 || n2 <= 8) {
		res.Method = MWUExact
		res.P = 2 * exactUSurvival(n1, n2, int(math.Round(u)))
	} else {
		res.Method = MWUAsymptotic
		n := float64(n1 + n2)
		var tieTerm float64
		for _, t := range tieSizes {
			tt := float64(t)
			tieTerm += tt*tt*tt - tt
		}
		mu := float64(n1*n2) / 2
		s := math.Sqrt(float64(n1*n2) / 12 * ((n + 1) - tieTerm/(n*(n-1))))
		z := (u - mu - 0.5) / s
		res.P = 2 * distuv.UnitNormal.Survival(z)
	}
	res.P = math.Min(res.P, 1)
	return res, nil
}

// rankAll ranks the concatenation of samples with mid-ranks for ties and
// reports the size of every tie group.
func rankAll(samples ...[]float64) (ranks []float64, ties []int) {
	type obs struct {
		v float64
		i int
	}
	var all []obs
	for _, s := range samples {
		for _, v := range s {
			all = append(all, obs{v: v, i: len(all)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].v < all[j].v })

	ranks = make([]float64, len(all))
	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		mid := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[all[k].i] = mid
		}
		if j-i > 1 {
			ties = append(ties, j-i)
		}
		i = j
	}
	return ranks, ties
}

// exactUSurvival returns P(U >= u) under the null hypothesis for sample
// sizes n1 and n2, from the coefficients of the Gaussian binomial
// coefficient [n1+n2 choose n1]_q.
func exactUSurvival(n1, n2, u int) float64 {
	k, m := min(n1, n2), max(n1, n2)
	maxU := k * m
	if u <= 0 {
		return 1
	}
	if u > maxU {
		return 0
	}

	c := make([]float64, maxU+k+1)
	c[0] = 1
	deg := 0
	for i := 1; i <= k; i++ {
		top := deg + m + i
		// multiply by (1 - q^(m+i))
		for v := top; v >= m+i; v-- {
			c[v] -= c[v-m-i]
		}
		// divide by (1 - q^i)
		for v := i; v <= top; v++ {
			c[v] += c[v-i]
		}
		deg = i * m
		for v := deg + 1; v <= top; v++ {
			c[v] = 0
		}
	}

	var total, tail float64
	for v := 0; v <= maxU; v++ {
		total += c[v]
		if v >= u {
			tail += c[v]
		}
	}
	return tail / total
}
