package stats

import "fmt"

// Test names reported by Compare.
const (
	TestMannWhitney = "mann-whitney-u"
	TestWelch       = "welch-t"
	TestStudent     = "student-t"
)

// Comparison is the outcome of the two-sample test-selection rule.
type Comparison struct {
	A Summary `json:"a"`
	B Summary `json:"b"`

	ShapiroA TestResult  `json:"shapiro_a"`
	ShapiroB TestResult  `json:"shapiro_b"`
	Levene   *TestResult `json:"levene,omitempty"`

	// Test names the test whose result is reported below.
	Test      string  `json:"test"`
	Statistic float64 `json:"statistic"`
	P         float64 `json:"p"`
}

// Normal reports whether both samples passed the normality test.
func (c Comparison) Normal() bool { return c.Levene != nil }

// Compare chooses and runs a two-sample test: Mann-Whitney U when either
// sample fails Shapiro-Wilk at alpha, otherwise Welch's t-test when
// Levene's test rejects equal variance and Student's t-test when it
// doesn't. NaNs are dropped before testing.
func Compare(a, b []float64, alpha float64) (Comparison, error) {
	a, b = DropNaN(a), DropNaN(b)
	c := Comparison{A: Describe(a, 0), B: Describe(b, 0)}

	var err error
	if c.ShapiroA, err = ShapiroWilk(a); err != nil {
		return c, fmt.Errorf("first sample: %w", err)
	}
	if c.ShapiroB, err = ShapiroWilk(b); err != nil {
		return c, fmt.Errorf("second sample: %w", err)
	}

	if c.ShapiroA.P < alpha || c.ShapiroB.P < alpha {
		mwu, err := MannWhitneyU(a, b)
		if err != nil {
			return c, err
		}
		c.Test, c.Statistic, c.P = TestMannWhitney, mwu.Statistic, mwu.P
		return c, nil
	}

	lev, err := Levene(a, b)
	if err != nil {
		return c, err
	}
	c.Levene = &lev

	equalVar := lev.P >= alpha
	t, err := TTest(a, b, equalVar)
	if err != nil {
		return c, err
	}
	c.Test = TestStudent
	if !equalVar {
		c.Test = TestWelch
	}
	c.Statistic, c.P = t.Statistic, t.P
	return c, nil
}
