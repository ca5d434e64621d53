package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"report-tracker/models"
)

// ReEvaluationResult combines the original analysis snapshot with the freshly
// computed performance.
type ReEvaluationResult struct {
	ReportID             string    `json:"report_id"`
	StockSymbol          string    `json:"stock_symbol"`
	OriginalAnalysisDate time.Time `json:"original_analysis_date"`
	ReEvaluationDate     time.Time `json:"re_evaluation_date"`

	OriginalPrice     float64  `json:"original_price"`
	CurrentPrice      float64  `json:"current_price"`
	PerformancePct    float64  `json:"performance_pct"`
	PredictedReturn   *float64 `json:"predicted_return,omitempty"`
	ActualReturn      float64  `json:"actual_return"`
	AccuracyScore     *float64 `json:"accuracy_score,omitempty"`
	DaysSinceAnalysis int      `json:"days_since_analysis"`

	OriginalRecommendation models.Recommendation `json:"original_recommendation"`
	OriginalConfidence     float64               `json:"original_confidence"`
	OriginalTargetPrice    float64               `json:"original_target_price"`
	PerformanceSummary     string                `json:"performance_summary"`
}

type PriceMovement struct {
	OriginalPrice  float64 `json:"original_price"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange    float64 `json:"price_change"`
	PriceChangePct float64 `json:"price_change_pct"`
}

type ReturnAnalysis struct {
	PredictedReturn  *float64 `json:"predicted_return,omitempty"`
	ActualReturnPct  float64  `json:"actual_return_pct"`
	ReturnDifference *float64 `json:"return_difference,omitempty"`
	AccuracyScore    *float64 `json:"accuracy_score,omitempty"`
}

type TimeAnalysis struct {
	DaysSinceAnalysis int              `json:"days_since_analysis"`
	AnalysisTimeframe string           `json:"analysis_timeframe"`
	RiskLevel         models.RiskLevel `json:"risk_level"`
}

type RecommendationAssessment struct {
	Recommendation models.Recommendation `json:"recommendation"`
	WasCorrect     bool                  `json:"was_correct"`
	PerformancePct float64               `json:"performance_pct"`
	Confidence     float64               `json:"confidence"`
}

type BenchmarkComparison struct {
	BenchmarkName   string  `json:"benchmark_name"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	Outperformance  float64 `json:"outperformance"`
}

// PerformanceMetrics is the detailed per-report view returned by
// GetPerformance.
type PerformanceMetrics struct {
	ReportID     string    `json:"report_id"`
	StockSymbol  string    `json:"stock_symbol"`
	AnalysisDate time.Time `json:"analysis_date"`
	LastUpdated  time.Time `json:"last_updated"`

	PriceMovement       PriceMovement            `json:"price_movement"`
	ReturnAnalysis      ReturnAnalysis           `json:"return_analysis"`
	TimeAnalysis        TimeAnalysis             `json:"time_analysis"`
	Recommendation      RecommendationAssessment `json:"recommendation_accuracy"`
	PerformanceGrade    string                   `json:"performance_grade"`
	PerformanceCategory string                   `json:"performance_category"`
	Benchmark           *BenchmarkComparison     `json:"benchmark_comparison,omitempty"`
}

type PerformerRef struct {
	ReportID       string  `json:"report_id"`
	StockSymbol    string  `json:"symbol"`
	PerformancePct float64 `json:"performance"`
}

type RecommendationStats struct {
	Total    int     `json:"total"`
	Positive int     `json:"positive"`
	Accuracy float64 `json:"accuracy"`
}

// PerformanceSummary aggregates a user's report set. Derived on demand, never
// persisted.
type PerformanceSummary struct {
	TotalReports            int                                            `json:"total_reports"`
	AverageAccuracy         *float64                                       `json:"average_accuracy,omitempty"`
	TotalPerformance        float64                                        `json:"total_performance"`
	BestPerformer           *PerformerRef                                  `json:"best_performer,omitempty"`
	WorstPerformer          *PerformerRef                                  `json:"worst_performer,omitempty"`
	RecommendationAccuracy  map[models.Recommendation]*RecommendationStats `json:"recommendation_accuracy"`
	PerformanceDistribution map[string]int                                 `json:"performance_distribution"`
}

// ReportService orchestrates report persistence, market data and the
// performance calculator.
type ReportService struct {
	store       ReportStore
	prices      PriceSource
	benchmarks  BenchmarkSource
	holdBandPct float64
	now         func() time.Time
}

func NewReportService(store ReportStore, prices PriceSource) *ReportService {
	return &ReportService{
		store:       store,
		prices:      prices,
		holdBandPct: DefaultHoldBandPct,
		now:         time.Now,
	}
}

// UseBenchmark enables benchmark comparison in GetPerformance.
func (s *ReportService) UseBenchmark(b BenchmarkSource) {
	s.benchmarks = b
}

// SetHoldBand overrides the hold neutrality band (percent).
func (s *ReportService) SetHoldBand(pct float64) {
	if pct > 0 {
		s.holdBandPct = pct
	}
}

func validateReport(report *models.AnalysisReport) error {
	if strings.TrimSpace(report.StockSymbol) == "" {
		return fmt.Errorf("%w: stock symbol is required", ErrInvalidInput)
	}
	if !report.RiskLevel.Valid() {
		return fmt.Errorf("%w: unknown risk level %q", ErrInvalidInput, report.RiskLevel)
	}
	if !report.Recommendation.Valid() {
		return fmt.Errorf("%w: unknown recommendation %q", ErrInvalidInput, report.Recommendation)
	}
	if report.TargetPrice <= 0 {
		return fmt.Errorf("%w: target price must be positive", ErrInvalidInput)
	}
	for name, score := range map[string]float64{
		"technical_score":   report.TechnicalScore,
		"fundamental_score": report.FundamentalScore,
		"risk_score":        report.RiskScore,
		"overall_score":     report.OverallScore,
	} {
		if score < 0 || score > 100 {
			return fmt.Errorf("%w: %s must be in [0,100]", ErrInvalidInput, name)
		}
	}
	if report.Confidence < 0 || report.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0,1]", ErrInvalidInput)
	}
	return nil
}

// SaveReport persists a new analysis report and its initial performance
// snapshot, anchored at the current market price.
func (s *ReportService) SaveReport(ctx context.Context, report *models.AnalysisReport) error {
	report.StockSymbol = strings.ToUpper(strings.TrimSpace(report.StockSymbol))
	if report.Timeframe == "" {
		report.Timeframe = "1y"
	}
	if err := validateReport(report); err != nil {
		return err
	}

	quote, err := s.prices.GetCurrentPrice(ctx, report.StockSymbol)
	if err != nil {
		return err
	}

	predicted, err := PredictedReturnPct(report.TargetPrice, quote.Price)
	if err != nil {
		return err
	}

	report.IsActive = true
	perf := &models.ReportPerformance{
		StockSymbol:      report.StockSymbol,
		OriginalPrice:    quote.Price,
		CurrentPrice:     quote.Price,
		PerformancePct:   0,
		PredictedReturn:  &predicted,
		ActualReturn:     0,
		AccuracyScore:    nil, // nothing has happened yet
		MarketConditions: marketConditions(quote),
	}
	if err := s.store.SaveReportWithPerformance(ctx, report, perf); err != nil {
		return err
	}
	report.Performance = perf

	log.Printf("Saved analysis report %s for %s", report.ID, report.StockSymbol)
	return nil
}

// GetUserReports lists a user's active reports, newest first, refreshing each
// attached performance snapshot on a best-effort basis.
func (s *ReportService) GetUserReports(ctx context.Context, userID uint, filter ReportFilter) ([]models.AnalysisReport, error) {
	filter.StockSymbol = strings.ToUpper(strings.TrimSpace(filter.StockSymbol))
	reports, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	for i := range reports {
		report := &reports[i]
		if report.Performance == nil {
			continue
		}
		quote, err := s.prices.GetCurrentPrice(ctx, report.StockSymbol)
		if err != nil {
			// stale snapshot stays valid, listing must not fail on feed hiccups
			log.Printf("Skipping performance refresh for report %s: %v", report.ID, err)
			continue
		}
		if quote.Price == report.Performance.CurrentPrice {
			continue
		}
		now := s.now().UTC()
		if err := s.applyQuote(report, report.Performance, quote, now); err != nil {
			log.Printf("Failed to refresh performance for report %s: %v", report.ID, err)
			continue
		}
		if err := s.store.ReplaceEvaluation(ctx, report.Performance, now); err != nil {
			log.Printf("Failed to persist refreshed performance for report %s: %v", report.ID, err)
		}
	}

	return reports, nil
}

// applyQuote recomputes the mutable snapshot fields from a fresh quote.
// OriginalPrice and PredictedReturn are never touched.
func (s *ReportService) applyQuote(report *models.AnalysisReport, perf *models.ReportPerformance, quote *Quote, now time.Time) error {
	pct, err := ActualReturnPct(perf.OriginalPrice, quote.Price)
	if err != nil {
		return err
	}
	perf.CurrentPrice = quote.Price
	perf.PerformancePct = pct
	perf.ActualReturn = quote.Price - perf.OriginalPrice
	perf.AccuracyScore = AccuracyScore(pct, perf.PredictedReturn)
	perf.DaysSinceAnalysis = DaysSinceAnalysis(report.CreatedAt, now)
	perf.MarketConditions = marketConditions(quote)
	perf.LastUpdated = now
	return nil
}

// ReEvaluate refreshes a report's performance snapshot against the current
// market price. The replace write and the report timestamp bump are atomic;
// on a price failure nothing is written and the stale snapshot stays valid.
func (s *ReportService) ReEvaluate(ctx context.Context, userID uint, reportID string) (*ReEvaluationResult, error) {
	report, err := s.loadOwned(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	quote, err := s.prices.GetCurrentPrice(ctx, report.StockSymbol)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	perf := report.Performance
	if perf == nil {
		// first evaluation: anchor at the current price
		predicted, perr := PredictedReturnPct(report.TargetPrice, quote.Price)
		if perr != nil {
			return nil, perr
		}
		perf = &models.ReportPerformance{
			ReportID:        report.ID,
			StockSymbol:     report.StockSymbol,
			OriginalPrice:   quote.Price,
			PredictedReturn: &predicted,
		}
	}

	if err := s.applyQuote(report, perf, quote, now); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceEvaluation(ctx, perf, now); err != nil {
		return nil, err
	}
	report.Performance = perf

	result := &ReEvaluationResult{
		ReportID:               report.ID,
		StockSymbol:            report.StockSymbol,
		OriginalAnalysisDate:   report.CreatedAt,
		ReEvaluationDate:       now,
		OriginalPrice:          perf.OriginalPrice,
		CurrentPrice:           perf.CurrentPrice,
		PerformancePct:         perf.PerformancePct,
		PredictedReturn:        perf.PredictedReturn,
		ActualReturn:           perf.ActualReturn,
		AccuracyScore:          perf.AccuracyScore,
		DaysSinceAnalysis:      perf.DaysSinceAnalysis,
		OriginalRecommendation: report.Recommendation,
		OriginalConfidence:     report.Confidence,
		OriginalTargetPrice:    report.TargetPrice,
		PerformanceSummary:     summarizeLine(report.StockSymbol, perf),
	}

	log.Printf("Re-evaluated report %s - Performance: %.2f%%", report.ID, perf.PerformancePct)
	return result, nil
}

// GetPerformance returns the detailed performance view for one report,
// running a first evaluation when no snapshot exists yet.
func (s *ReportService) GetPerformance(ctx context.Context, userID uint, reportID string) (*PerformanceMetrics, error) {
	report, err := s.loadOwned(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	if report.Performance == nil {
		if _, err := s.ReEvaluate(ctx, userID, reportID); err != nil {
			return nil, err
		}
		report, err = s.loadOwned(ctx, userID, reportID)
		if err != nil {
			return nil, err
		}
	}
	perf := report.Performance

	var returnDiff *float64
	if perf.PredictedReturn != nil {
		diff := perf.PerformancePct - *perf.PredictedReturn
		returnDiff = &diff
	}

	metrics := &PerformanceMetrics{
		ReportID:     report.ID,
		StockSymbol:  report.StockSymbol,
		AnalysisDate: report.CreatedAt,
		LastUpdated:  perf.LastUpdated,
		PriceMovement: PriceMovement{
			OriginalPrice:  perf.OriginalPrice,
			CurrentPrice:   perf.CurrentPrice,
			PriceChange:    perf.CurrentPrice - perf.OriginalPrice,
			PriceChangePct: perf.PerformancePct,
		},
		ReturnAnalysis: ReturnAnalysis{
			PredictedReturn:  perf.PredictedReturn,
			ActualReturnPct:  perf.PerformancePct,
			ReturnDifference: returnDiff,
			AccuracyScore:    perf.AccuracyScore,
		},
		TimeAnalysis: TimeAnalysis{
			DaysSinceAnalysis: perf.DaysSinceAnalysis,
			AnalysisTimeframe: report.Timeframe,
			RiskLevel:         report.RiskLevel,
		},
		Recommendation: RecommendationAssessment{
			Recommendation: report.Recommendation,
			WasCorrect:     RecommendationCorrect(report.Recommendation, perf.PerformancePct, s.holdBandPct),
			PerformancePct: perf.PerformancePct,
			Confidence:     report.Confidence,
		},
		PerformanceGrade:    PerformanceGrade(perf.AccuracyScore),
		PerformanceCategory: PerformanceCategory(perf.PerformancePct),
	}

	if s.benchmarks != nil {
		if name, benchmarkPct, err := s.benchmarks.GetBenchmarkReturn(ctx); err == nil {
			metrics.Benchmark = &BenchmarkComparison{
				BenchmarkName:   name,
				BenchmarkReturn: benchmarkPct,
				Outperformance:  BenchmarkOutperformance(perf.PerformancePct, benchmarkPct),
			}
		} else {
			log.Printf("Benchmark comparison unavailable for report %s: %v", report.ID, err)
		}
	}

	return metrics, nil
}

// GetSummary aggregates a user's full report set. Zero reports yields zero
// counts and nil optionals, never an error.
func (s *ReportService) GetSummary(ctx context.Context, userID uint) (*PerformanceSummary, error) {
	reports, err := s.store.ListByUser(ctx, userID, ReportFilter{})
	if err != nil {
		return nil, err
	}

	summary := &PerformanceSummary{
		TotalReports:           len(reports),
		RecommendationAccuracy: map[models.Recommendation]*RecommendationStats{},
		PerformanceDistribution: map[string]int{
			CategoryExcellent: 0,
			CategoryGood:      0,
			CategoryNeutral:   0,
			CategoryPoor:      0,
			CategoryTerrible:  0,
		},
	}

	var accuracySum float64
	var accuracyCount int

	for i := range reports {
		report := &reports[i]
		perf := report.Performance
		if perf == nil {
			continue
		}
		pct := perf.PerformancePct

		summary.TotalPerformance += pct
		summary.PerformanceDistribution[PerformanceCategory(pct)]++

		if perf.AccuracyScore != nil {
			accuracySum += *perf.AccuracyScore
			accuracyCount++
		}

		if summary.BestPerformer == nil || pct > summary.BestPerformer.PerformancePct {
			summary.BestPerformer = &PerformerRef{ReportID: report.ID, StockSymbol: report.StockSymbol, PerformancePct: pct}
		}
		if summary.WorstPerformer == nil || pct < summary.WorstPerformer.PerformancePct {
			summary.WorstPerformer = &PerformerRef{ReportID: report.ID, StockSymbol: report.StockSymbol, PerformancePct: pct}
		}

		stats := summary.RecommendationAccuracy[report.Recommendation]
		if stats == nil {
			stats = &RecommendationStats{}
			summary.RecommendationAccuracy[report.Recommendation] = stats
		}
		stats.Total++
		if RecommendationCorrect(report.Recommendation, pct, s.holdBandPct) {
			stats.Positive++
		}
	}

	if accuracyCount > 0 {
		avg := accuracySum / float64(accuracyCount)
		summary.AverageAccuracy = &avg
	}
	for _, stats := range summary.RecommendationAccuracy {
		stats.Accuracy = float64(stats.Positive) / float64(stats.Total)
	}

	return summary, nil
}

// DeleteReport soft-deletes a report. The performance snapshot stays behind
// for the record; only a hard delete cascades it away.
func (s *ReportService) DeleteReport(ctx context.Context, userID uint, reportID string) error {
	return s.store.Deactivate(ctx, reportID, userID)
}

func (s *ReportService) loadOwned(ctx context.Context, userID uint, reportID string) (*models.AnalysisReport, error) {
	report, err := s.store.Load(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.UserID != userID || !report.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return report, nil
}

func marketConditions(quote *Quote) models.JSONMap {
	return models.JSONMap{
		"as_of":      quote.Timestamp.Format(time.RFC3339),
		"change_pct": quote.ChangePct,
	}
}

// summarizeLine renders the one-line human summary, e.g.
// "CBA is up 4.3% vs a predicted 7.9%, giving 54% accuracy (grade D)".
func summarizeLine(symbol string, perf *models.ReportPerformance) string {
	direction := "up"
	if perf.PerformancePct < 0 {
		direction = "down"
	}
	move := fmt.Sprintf("%s is %s %.1f%%", symbol, direction, math.Abs(perf.PerformancePct))

	if perf.PredictedReturn == nil || perf.AccuracyScore == nil {
		return move + " with no prediction to grade"
	}
	return fmt.Sprintf("%s vs a predicted %.1f%%, giving %.0f%% accuracy (grade %s)",
		move, *perf.PredictedReturn, *perf.AccuracyScore*100, PerformanceGrade(perf.AccuracyScore))
}
