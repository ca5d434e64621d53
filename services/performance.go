package services

import (
	"fmt"
	"math"
	"time"

	"report-tracker/models"
)

// DefaultHoldBandPct is the |return| threshold (in percent) under which a
// "hold" recommendation counts as correct. Overridable via config
// (analysis.hold_band_pct); awaiting product-owner confirmation.
const DefaultHoldBandPct = 2.0

// ActualReturnPct is the realized return of currentPrice against
// originalPrice, in percent.
func ActualReturnPct(originalPrice, currentPrice float64) (float64, error) {
	if originalPrice <= 0 {
		return 0, fmt.Errorf("%w: original price must be positive, got %.4f", ErrInvalidInput, originalPrice)
	}
	return (currentPrice - originalPrice) / originalPrice * 100, nil
}

// PredictedReturnPct is the return implied by the analyst's target price
// against the price at analysis time, in percent. Derived once at first
// evaluation; never recomputed afterwards.
func PredictedReturnPct(targetPrice, originalPrice float64) (float64, error) {
	if originalPrice <= 0 {
		return 0, fmt.Errorf("%w: original price must be positive, got %.4f", ErrInvalidInput, originalPrice)
	}
	return (targetPrice - originalPrice) / originalPrice * 100, nil
}

// AccuracyScore measures how close the actual return came to the predicted
// one, normalized by the magnitude of the prediction so small claims are not
// let off easy by equally small absolute errors. Nil when there is no
// non-zero prediction to score against.
func AccuracyScore(actualPct float64, predictedPct *float64) *float64 {
	if predictedPct == nil || *predictedPct == 0 {
		return nil
	}
	accuracy := 1.0 - math.Abs(actualPct-*predictedPct)/math.Abs(*predictedPct)
	accuracy = math.Max(0.0, math.Min(1.0, accuracy))
	return &accuracy
}

// PerformanceGrade maps an accuracy score to a letter grade. Bands are
// inclusive on their lower edge.
func PerformanceGrade(accuracy *float64) string {
	if accuracy == nil {
		return "N/A"
	}
	switch {
	case *accuracy >= 0.8:
		return "A"
	case *accuracy >= 0.7:
		return "B"
	case *accuracy >= 0.6:
		return "C"
	case *accuracy >= 0.5:
		return "D"
	default:
		return "F"
	}
}

// Performance categories, from best to worst.
const (
	CategoryExcellent = "excellent" // > 10%
	CategoryGood      = "good"      // [5%, 10%]
	CategoryNeutral   = "neutral"   // (-5%, 5%)
	CategoryPoor      = "poor"      // [-10%, -5%)
	CategoryTerrible  = "terrible"  // < -10%
)

// PerformanceCategory buckets a performance percentage. Every real number
// maps to exactly one category.
func PerformanceCategory(performancePct float64) string {
	switch {
	case performancePct > 10:
		return CategoryExcellent
	case performancePct >= 5:
		return CategoryGood
	case performancePct > -5:
		return CategoryNeutral
	case performancePct >= -10:
		return CategoryPoor
	default:
		return CategoryTerrible
	}
}

// DaysSinceAnalysis counts whole days between the analysis and now, never
// negative.
func DaysSinceAnalysis(createdAt, now time.Time) int {
	days := int(now.Sub(createdAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// RecommendationCorrect says whether the original call turned out right:
// buy-class needs a positive return, sell-class a negative one, and hold a
// return inside the neutrality band.
func RecommendationCorrect(rec models.Recommendation, actualPct, holdBandPct float64) bool {
	switch rec {
	case models.StrongBuy, models.Buy:
		return actualPct > 0
	case models.Sell, models.StrongSell:
		return actualPct < 0
	case models.Hold:
		return math.Abs(actualPct) <= holdBandPct
	}
	return false
}

// BenchmarkOutperformance is how much the report beat (or trailed) the
// reference index, in percentage points.
func BenchmarkOutperformance(actualPct, benchmarkPct float64) float64 {
	return actualPct - benchmarkPct
}
