package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-tracker/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestActualReturnPct(t *testing.T) {
	pct, err := ActualReturnPct(88.50, 92.30)
	require.NoError(t, err)
	assert.InDelta(t, 4.2938, pct, 0.0001)

	pct, err = ActualReturnPct(100, 80)
	require.NoError(t, err)
	assert.InDelta(t, -20.0, pct, 0.0001)
}

func TestActualReturnPctRoundTrips(t *testing.T) {
	originals := []float64{0.01, 1, 27.20, 88.50, 1500}
	currents := []float64{0.005, 1, 39.80, 92.30, 2000}

	for _, original := range originals {
		for _, current := range currents {
			pct, err := ActualReturnPct(original, current)
			require.NoError(t, err)
			assert.InDelta(t, current, original*(1+pct/100), 1e-9)
		}
	}
}

func TestActualReturnPctRejectsNonPositiveOriginal(t *testing.T) {
	_, err := ActualReturnPct(0, 92.30)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ActualReturnPct(-5, 92.30)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPredictedReturnPct(t *testing.T) {
	pct, err := PredictedReturnPct(95.50, 88.50)
	require.NoError(t, err)
	assert.InDelta(t, 7.9096, pct, 0.0001)

	_, err = PredictedReturnPct(95.50, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAccuracyScore(t *testing.T) {
	// undefined without a non-zero prediction
	assert.Nil(t, AccuracyScore(5, nil))
	assert.Nil(t, AccuracyScore(5, floatPtr(0)))

	// exact match is perfect
	got := AccuracyScore(7.91, floatPtr(7.91))
	require.NotNil(t, got)
	assert.Equal(t, 1.0, *got)

	// symmetric around the prediction
	over := AccuracyScore(10, floatPtr(8))
	under := AccuracyScore(6, floatPtr(8))
	require.NotNil(t, over)
	require.NotNil(t, under)
	assert.InDelta(t, *over, *under, 1e-9)

	// wildly wrong clamps at zero
	wild := AccuracyScore(100, floatPtr(2))
	require.NotNil(t, wild)
	assert.Equal(t, 0.0, *wild)
}

func TestAccuracyScoreStaysInUnitInterval(t *testing.T) {
	actuals := []float64{-50, -10, -2, 0, 2, 7.91, 10, 50, 500}
	predictions := []float64{-20, -7.91, -0.5, 0.5, 7.91, 20}

	for _, actual := range actuals {
		for _, predicted := range predictions {
			got := AccuracyScore(actual, floatPtr(predicted))
			require.NotNil(t, got)
			assert.GreaterOrEqual(t, *got, 0.0)
			assert.LessOrEqual(t, *got, 1.0)
		}
	}
}

func TestPerformanceGradeBands(t *testing.T) {
	cases := map[float64]string{
		1.00: "A",
		0.80: "A",
		0.79: "B",
		0.70: "B",
		0.69: "C",
		0.60: "C",
		0.59: "D",
		0.50: "D",
		0.49: "F",
		0.00: "F",
	}
	for accuracy, want := range cases {
		assert.Equal(t, want, PerformanceGrade(floatPtr(accuracy)), "accuracy %.2f", accuracy)
	}

	assert.Equal(t, "N/A", PerformanceGrade(nil))
}

func TestPerformanceGradeIsTotal(t *testing.T) {
	valid := map[string]bool{"A": true, "B": true, "C": true, "D": true, "F": true}
	for accuracy := 0.0; accuracy <= 1.0; accuracy += 0.01 {
		grade := PerformanceGrade(floatPtr(accuracy))
		assert.True(t, valid[grade], "accuracy %.2f produced grade %q", accuracy, grade)
	}
}

func TestPerformanceCategoryBoundaries(t *testing.T) {
	cases := map[float64]string{
		25:      CategoryExcellent,
		10.01:   CategoryExcellent,
		10:      CategoryGood,
		5:       CategoryGood,
		4.9999:  CategoryNeutral,
		4.29:    CategoryNeutral,
		0:       CategoryNeutral,
		-4.9999: CategoryNeutral,
		-5:      CategoryPoor,
		-10:     CategoryPoor,
		-10.01:  CategoryTerrible,
		-25:     CategoryTerrible,
	}
	for pct, want := range cases {
		assert.Equal(t, want, PerformanceCategory(pct), "pct %.4f", pct)
	}
}

func TestPerformanceCategoryPartitionsTheRealLine(t *testing.T) {
	valid := map[string]bool{
		CategoryExcellent: true,
		CategoryGood:      true,
		CategoryNeutral:   true,
		CategoryPoor:      true,
		CategoryTerrible:  true,
	}
	for pct := -30.0; pct <= 30.0; pct += 0.25 {
		category := PerformanceCategory(pct)
		assert.True(t, valid[category], "pct %.2f produced category %q", pct, category)
	}
}

func TestDaysSinceAnalysis(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysSinceAnalysis(now, now))
	assert.Equal(t, 1, DaysSinceAnalysis(now.Add(-36*time.Hour), now))
	assert.Equal(t, 30, DaysSinceAnalysis(now.AddDate(0, 0, -30), now))
	// clock skew must not go negative
	assert.Equal(t, 0, DaysSinceAnalysis(now.Add(2*time.Hour), now))
}

func TestRecommendationCorrect(t *testing.T) {
	band := DefaultHoldBandPct

	assert.True(t, RecommendationCorrect(models.Buy, 0.5, band))
	assert.True(t, RecommendationCorrect(models.StrongBuy, 12, band))
	assert.False(t, RecommendationCorrect(models.Buy, -0.5, band))
	assert.False(t, RecommendationCorrect(models.Buy, 0, band))

	assert.True(t, RecommendationCorrect(models.Sell, -0.5, band))
	assert.True(t, RecommendationCorrect(models.StrongSell, -12, band))
	assert.False(t, RecommendationCorrect(models.Sell, 0.5, band))

	assert.True(t, RecommendationCorrect(models.Hold, 0, band))
	assert.True(t, RecommendationCorrect(models.Hold, 2, band))
	assert.True(t, RecommendationCorrect(models.Hold, -2, band))
	assert.False(t, RecommendationCorrect(models.Hold, 2.1, band))
	assert.False(t, RecommendationCorrect(models.Hold, -3, band))

	// wider band from config
	assert.True(t, RecommendationCorrect(models.Hold, 4, 5))
}

func TestBenchmarkOutperformance(t *testing.T) {
	assert.InDelta(t, 1.8, BenchmarkOutperformance(4.3, 2.5), 1e-9)
	assert.InDelta(t, -4.5, BenchmarkOutperformance(-2.0, 2.5), 1e-9)
}

// The worked scenario the whole pipeline must reproduce: a report anchored at
// 88.50 with a 95.50 target, re-evaluated at 92.30.
func TestWorkedScenario(t *testing.T) {
	predicted, err := PredictedReturnPct(95.50, 88.50)
	require.NoError(t, err)
	assert.InDelta(t, 7.9096, predicted, 0.0001)

	actual, err := ActualReturnPct(88.50, 92.30)
	require.NoError(t, err)
	assert.InDelta(t, 4.2938, actual, 0.0001)

	accuracy := AccuracyScore(actual, &predicted)
	require.NotNil(t, accuracy)
	assert.InDelta(t, 0.5428, *accuracy, 0.001)
	assert.True(t, math.Abs(*accuracy-0.542) < 0.002)

	assert.Equal(t, "D", PerformanceGrade(accuracy))
	assert.Equal(t, CategoryNeutral, PerformanceCategory(actual))
}
