package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"report-tracker/models"
)

// ReportFilter narrows ListByUser results. Zero values mean no filter.
type ReportFilter struct {
	RiskLevel   models.RiskLevel
	Timeframe   string
	StockSymbol string
	Offset      int
	Limit       int
}

const defaultListLimit = 100

// ReportStore is the persistence boundary for reports and their performance
// snapshots.
type ReportStore interface {
	Load(ctx context.Context, reportID string) (*models.AnalysisReport, error)
	ListByUser(ctx context.Context, userID uint, filter ReportFilter) ([]models.AnalysisReport, error)
	// SaveReportWithPerformance creates the report and its initial snapshot in
	// one transaction. A report must never exist without its price anchor.
	SaveReportWithPerformance(ctx context.Context, report *models.AnalysisReport, perf *models.ReportPerformance) error
	// ReplaceEvaluation persists the snapshot and bumps the owning report's
	// last_updated in one transaction, so a re-evaluation is never half
	// applied.
	ReplaceEvaluation(ctx context.Context, perf *models.ReportPerformance, evaluatedAt time.Time) error
	Deactivate(ctx context.Context, reportID string, userID uint) error
}

type GormReportStore struct {
	db *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

func (s *GormReportStore) Load(ctx context.Context, reportID string) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	err := s.db.WithContext(ctx).
		Preload("Performance").
		Where("id = ?", reportID).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return nil, err
	}
	return &report, nil
}

func (s *GormReportStore) ListByUser(ctx context.Context, userID uint, filter ReportFilter) ([]models.AnalysisReport, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true)

	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if filter.Timeframe != "" {
		query = query.Where("timeframe = ?", filter.Timeframe)
	}
	if filter.StockSymbol != "" {
		query = query.Where("stock_symbol = ?", filter.StockSymbol)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var reports []models.AnalysisReport
	err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Preload("Performance").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *GormReportStore) SaveReportWithPerformance(ctx context.Context, report *models.AnalysisReport, perf *models.ReportPerformance) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		perf.ReportID = report.ID
		return tx.Create(perf).Error
	})
}

func (s *GormReportStore) ReplaceEvaluation(ctx context.Context, perf *models.ReportPerformance, evaluatedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(perf).Error; err != nil {
			return err
		}
		return tx.Model(&models.AnalysisReport{}).
			Where("id = ?", perf.ReportID).
			Update("last_updated", evaluatedAt).Error
	})
}

func (s *GormReportStore) Deactivate(ctx context.Context, reportID string, userID uint) error {
	result := s.db.WithContext(ctx).
		Model(&models.AnalysisReport{}).
		Where("id = ? AND user_id = ? AND is_active = ?", reportID, userID, true).
		Updates(map[string]interface{}{
			"is_active":    false,
			"last_updated": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return nil
}
