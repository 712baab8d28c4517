package service

import (
	"testing"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAggregateEmptyList(t *testing.T) {
	m := Aggregate(nil)

	assert.Zero(t, m.AvgScore)
	assert.Zero(t, m.AvgOnTime)
	assert.Zero(t, m.AvgCompletion)
	assert.Zero(t, m.AtRisk)
}

func TestAggregate(t *testing.T) {
	vendors := []models.Vendor{
		{SupplierName: "Northline", Score: 90, OnTimeRate: 80, CompletionRate: 100},
		{SupplierName: "Bluecrest", Score: 50, OnTimeRate: 60, CompletionRate: 40},
		{SupplierName: "Unscored"}, // missing numerics count as zero
	}

	m := Aggregate(vendors)

	assert.InDelta(t, 140.0/3, m.AvgScore, 1e-9)
	assert.InDelta(t, 140.0/3, m.AvgOnTime, 1e-9)
	assert.InDelta(t, 140.0/3, m.AvgCompletion, 1e-9)
	assert.Equal(t, 2, m.AtRisk)
}

func TestAtRiskMonotonic(t *testing.T) {
	vendors := []models.Vendor{{Score: 90}}
	before := Aggregate(vendors).AtRisk

	vendors = append(vendors, models.Vendor{Score: 30}, models.Vendor{Score: 59.9})
	after := Aggregate(vendors).AtRisk

	assert.GreaterOrEqual(t, after, before)
	assert.Equal(t, 2, after)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskTier
	}{
		{score: 100, want: RiskLow},
		{score: 80, want: RiskLow},
		{score: 79.9, want: RiskMedium},
		{score: 60, want: RiskMedium},
		{score: 59.9, want: RiskHigh},
		{score: 0, want: RiskHigh},
		{score: -5, want: RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestBucketRisks(t *testing.T) {
	vendors := []models.Vendor{
		{Score: 86.4}, {Score: 81.7}, // low
		{Score: 78.9}, {Score: 60},   // medium
		{Score: 52.2},                // high
	}

	b := BucketRisks(vendors)

	assert.Equal(t, RiskBuckets{Low: 2, Medium: 2, High: 1}, b)
}

func TestTrendDrift(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

	points := Trend(70, now)

	scores := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		scores[i] = p.Score
		labels[i] = p.Month
	}

	assert.Equal(t, []float64{62, 66, 68, 71, 72, 70}, scores)
	assert.Equal(t, []string{"Mar", "Apr", "May", "Jun", "Jul", "Aug"}, labels)
}

func TestTrendClampsToRange(t *testing.T) {
	now := time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)

	high := Trend(99, now)
	assert.Equal(t, 100.0, high[4].Score) // 99+2 clamped
	assert.Equal(t, 100.0, high[3].Score) // 99+1 = 100 exactly

	low := Trend(5, now)
	assert.Equal(t, 0.0, low[0].Score) // 5-8 clamped
	assert.Equal(t, 1.0, low[1].Score)

	// Year boundary: Jan counts back into the previous year.
	assert.Equal(t, "Aug", low[0].Month)
	assert.Equal(t, "Jan", low[5].Month)
}

func TestTrendRoundsToOneDecimal(t *testing.T) {
	now := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	points := Trend(70.0/3*2, now) // 46.666...

	assert.Equal(t, 38.7, points[0].Score)
	assert.Equal(t, 46.7, points[5].Score)
}
