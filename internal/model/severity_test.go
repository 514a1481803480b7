package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestGrade tests the recovery rate thresholds.
func TestGrade(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rate     float64
		expected Severity
	}{
		{0, SeverityInfo},
		{0.001, SeverityLow},
		{0.05, SeverityMedium},
		{0.19, SeverityMedium},
		{0.2, SeverityHigh},
		{0.5, SeverityCritical},
		{1, SeverityCritical},
	}

	for _, tc := range testCases {
		if got := Grade(tc.rate); got != tc.expected {
			t.Errorf("Grade(%v) = %v, expected %v", tc.rate, got, tc.expected)
		}
	}
}

// TestGetAdvice tests that every severity has advice.
func TestGetAdvice(t *testing.T) {
	t.Parallel()

	for _, s := range []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		a := GetAdvice(s)
		if a.Severity != s || a.Impact == "" || a.Recommendation == "" {
			t.Errorf("GetAdvice(%v) = %+v, want complete advice", s, a)
		}
	}
	if a := GetAdvice(Severity(42)); a.Recommendation != "" {
		t.Errorf("unknown severity should have no recommendation, got %+v", a)
	}
}
