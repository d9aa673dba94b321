package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSpread(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   Spread
	}{
		{
			name:   "two quotes",
			prices: []float64{100, 110},
			want:   Spread{Low: 100, High: 110, BasisPoints: 952.38, Percent: 10},
		},
		{
			name:   "order independent",
			prices: []float64{110, 105, 100},
			want:   Spread{Low: 100, High: 110, BasisPoints: 952.38, Percent: 10},
		},
		{
			name:   "single quote",
			prices: []float64{64123.45},
			want:   Spread{Low: 64123.45, High: 64123.45, BasisPoints: 0, Percent: 0},
		},
		{
			name:   "percent rounds to four places",
			prices: []float64{64000, 64010.5},
			want:   Spread{Low: 64000, High: 64010.5, BasisPoints: 1.64, Percent: 0.0164},
		},
		{
			name:   "cent spread rounds on the binary value",
			prices: []float64{60000.0, 60000.03},
			want:   Spread{Low: 60000, High: 60000.03, BasisPoints: 0, Percent: 0},
		},
		{
			name:   "exact tie rounds to even",
			prices: []float64{3200, 3201},
			want:   Spread{Low: 3200, High: 3201, BasisPoints: 3.12, Percent: 0.0312},
		},
		{
			name:   "zero low guards mid and percent",
			prices: []float64{0, 10},
			want:   Spread{Low: 0, High: 10, BasisPoints: 0, Percent: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeSpread(tt.prices)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeSpread_Empty(t *testing.T) {
	_, ok := ComputeSpread(nil)
	assert.False(t, ok)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.0312, roundTo(0.03125, 4))
	assert.Equal(t, 0.12, roundTo(0.125, 2))
	assert.Equal(t, 0.38, roundTo(0.375, 2))
	assert.Equal(t, 2.5, roundTo(2.5, 2))
	assert.Equal(t, 0.0, roundTo(0.00004, 4))
}
