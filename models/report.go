package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

type Recommendation string

const (
	StrongBuy  Recommendation = "strong_buy"
	Buy        Recommendation = "buy"
	Hold       Recommendation = "hold"
	Sell       Recommendation = "sell"
	StrongSell Recommendation = "strong_sell"
)

func (r Recommendation) Valid() bool {
	switch r {
	case StrongBuy, Buy, Hold, Sell, StrongSell:
		return true
	}
	return false
}

// JSONMap is a jsonb column holding opaque key/value data.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return errors.New("unsupported type for JSONMap")
}

// AnalysisReport is a user's saved stock analysis. The analysis itself
// (scores, recommendation, target price) is produced upstream and stored
// verbatim; only LastUpdated and the attached Performance row change after
// creation. Reports are soft-deleted via IsActive.
type AnalysisReport struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	StockSymbol string    `gorm:"type:varchar(10);not null;index" json:"stock_symbol"`
	RiskLevel   RiskLevel `gorm:"type:varchar(20);not null" json:"risk_level"`
	Timeframe   string    `gorm:"type:varchar(20);not null;default:'1y'" json:"timeframe"`

	// Analysis parameters
	TechnicalIndicators pq.StringArray `gorm:"type:text[]" json:"technical_indicators,omitempty"`
	FundamentalMetrics  pq.StringArray `gorm:"type:text[]" json:"fundamental_metrics,omitempty"`
	RiskFactors         pq.StringArray `gorm:"type:text[]" json:"risk_factors,omitempty"`

	// Analysis results
	TechnicalScore   float64        `json:"technical_score"`
	FundamentalScore float64        `json:"fundamental_score"`
	RiskScore        float64        `json:"risk_score"`
	OverallScore     float64        `json:"overall_score"`
	Recommendation   Recommendation `gorm:"type:varchar(20);not null" json:"recommendation"`
	Confidence       float64        `json:"confidence"`
	TargetPrice      float64        `gorm:"not null" json:"target_price"`
	KeyMetrics       JSONMap        `gorm:"type:jsonb" json:"key_metrics,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`

	Performance *ReportPerformance `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"performance,omitempty"`
	User        User               `gorm:"foreignKey:UserID" json:"-"`
}

func (r *AnalysisReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = time.Now().UTC()
	}
	return nil
}

// ReportPerformance is the single performance snapshot attached to a report.
// It is replaced wholesale on each re-evaluation, never appended.
// OriginalPrice is written once at first evaluation and anchors every later
// PerformancePct; PredictedReturn is derived once from the target price and
// never recomputed.
type ReportPerformance struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID    string `gorm:"type:uuid;not null;uniqueIndex" json:"report_id"`
	StockSymbol string `gorm:"type:varchar(10);not null;index" json:"stock_symbol"`

	OriginalPrice float64 `gorm:"not null" json:"original_price"`
	CurrentPrice  float64 `gorm:"not null" json:"current_price"`

	PerformancePct    float64  `json:"performance_pct"`
	PredictedReturn   *float64 `json:"predicted_return,omitempty"`
	ActualReturn      float64  `json:"actual_return"`
	AccuracyScore     *float64 `json:"accuracy_score,omitempty"`
	DaysSinceAnalysis int      `json:"days_since_analysis"`
	MarketConditions  JSONMap  `gorm:"type:jsonb" json:"market_conditions,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

func (p *ReportPerformance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	return nil
}

// TableName specifies the table name for AnalysisReport
func (AnalysisReport) TableName() string {
	return "analysis_reports"
}

// TableName specifies the table name for ReportPerformance
func (ReportPerformance) TableName() string {
	return "report_performance"
}
