package metric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		rule   Rule
		want   float64
		ok     bool
	}{
		{"empty min", nil, RuleMin, 0, false},
		{"empty mean", nil, RuleMean, 0, false},
		{"single min", []float64{41.5}, RuleMin, 41.5, true},
		{"single mean", []float64{41.5}, RuleMean, 41.5, true},
		{"min picks smallest", []float64{43.1, 41.2, 42.7}, RuleMin, 41.2, true},
		{"mean averages", []float64{40, 42, 44}, RuleMean, 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reduce(tt.values, tt.rule)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestReduceSingleValueAgreesAcrossRules(t *testing.T) {
	// With one repeat the reduction rule cannot matter.
	min, ok := Reduce([]float64{7.25}, RuleMin)
	require.True(t, ok)
	mean, ok := Reduce([]float64{7.25}, RuleMean)
	require.True(t, ok)
	require.Equal(t, min, mean)
}

func TestSpread(t *testing.T) {
	require.Zero(t, Spread(nil))
	require.Zero(t, Spread([]float64{3.5}))

	// Mean 5, population variance 4.
	require.InDelta(t, 2.0, Spread([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	require.Zero(t, Spread([]float64{3, 3, 3}))
}

func TestKindRule(t *testing.T) {
	require.Equal(t, RuleMin, RuntimeMin.Rule())
	require.Equal(t, RuleMean, RuntimeMean.Rule())
	require.Equal(t, RuleMin, RHSTime.Rule())
	require.Equal(t, RuleMin, InversionTime.Rule())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(string(k))
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}

	_, err := ParseKind("runtime-max")
	require.Error(t, err)
	require.Contains(t, err.Error(), "runtime-max")

	// The script mode is not a selectable extraction metric.
	_, err = ParseKind(string(ExternalScript))
	require.Error(t, err)
}
