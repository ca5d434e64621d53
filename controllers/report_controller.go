package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"report-tracker/global"
	"report-tracker/models"
	"report-tracker/services"
)

const summaryCacheExpiration = 10 * time.Minute

type ReportController struct {
	service *services.ReportService
}

func NewReportController(service *services.ReportService) *ReportController {
	return &ReportController{service: service}
}

type CreateReportRequest struct {
	StockSymbol string           `json:"stock_symbol" binding:"required"`
	RiskLevel   models.RiskLevel `json:"risk_level" binding:"required"`
	Timeframe   string           `json:"timeframe"`

	TechnicalIndicators []string `json:"technical_indicators"`
	FundamentalMetrics  []string `json:"fundamental_metrics"`
	RiskFactors         []string `json:"risk_factors"`

	TechnicalScore   float64                `json:"technical_score"`
	FundamentalScore float64                `json:"fundamental_score"`
	RiskScore        float64                `json:"risk_score"`
	OverallScore     float64                `json:"overall_score"`
	Recommendation   models.Recommendation  `json:"recommendation" binding:"required"`
	Confidence       float64                `json:"confidence"`
	TargetPrice      float64                `json:"target_price" binding:"required"`
	KeyMetrics       map[string]interface{} `json:"key_metrics"`
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return userID.(uint), true
}

func summaryCacheKey(userID uint) string {
	return fmt.Sprintf("summary:user:%d", userID)
}

func invalidateSummary(userID uint) {
	// 缓存失效：异步/不阻断主流程
	go func() {
		_ = global.RedisDB.Del(context.Background(), summaryCacheKey(userID)).Err()
	}()
}

// CreateReport saves a new analysis report together with its initial
// performance snapshot.
func (rc *ReportController) CreateReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := models.AnalysisReport{
		UserID:              userID,
		StockSymbol:         req.StockSymbol,
		RiskLevel:           req.RiskLevel,
		Timeframe:           req.Timeframe,
		TechnicalIndicators: req.TechnicalIndicators,
		FundamentalMetrics:  req.FundamentalMetrics,
		RiskFactors:         req.RiskFactors,
		TechnicalScore:      req.TechnicalScore,
		FundamentalScore:    req.FundamentalScore,
		RiskScore:           req.RiskScore,
		OverallScore:        req.OverallScore,
		Recommendation:      req.Recommendation,
		Confidence:          req.Confidence,
		TargetPrice:         req.TargetPrice,
		KeyMetrics:          req.KeyMetrics,
	}

	if err := rc.service.SaveReport(c.Request.Context(), &report); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	invalidateSummary(userID)
	c.JSON(http.StatusCreated, report)
}

// GetReports lists the current user's reports with optional filters.
func (rc *ReportController) GetReports(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	filter := services.ReportFilter{
		RiskLevel:   models.RiskLevel(c.Query("risk_level")),
		Timeframe:   c.Query("timeframe"),
		StockSymbol: c.Query("stock_symbol"),
		Offset:      skip,
		Limit:       limit,
	}
	if filter.RiskLevel != "" && !filter.RiskLevel.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown risk level"})
		return
	}

	reports, err := rc.service.GetUserReports(c.Request.Context(), userID, filter)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}

// ReEvaluateReport refreshes one report against the current market price.
func (rc *ReportController) ReEvaluateReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := rc.service.ReEvaluate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	invalidateSummary(userID)
	c.JSON(http.StatusOK, result)
}

// GetReportPerformance returns the detailed performance view for one report.
func (rc *ReportController) GetReportPerformance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	metrics, err := rc.service.GetPerformance(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// GetPerformanceSummary aggregates the user's report set, with a short-lived
// redis cache in front.
func (rc *ReportController) GetPerformanceSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var summary *services.PerformanceSummary
	if cachedData, err := global.RedisDB.Get(ctx, summaryCacheKey(userID)).Result(); err == nil {
		if err := json.Unmarshal([]byte(cachedData), &summary); err == nil {
			c.JSON(http.StatusOK, summary)
			return
		}
	} else if err != redis.Nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary, err := rc.service.GetSummary(ctx, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if summaryJSON, err := json.Marshal(summary); err == nil {
		_ = global.RedisDB.Set(ctx, summaryCacheKey(userID), summaryJSON, summaryCacheExpiration).Err()
	}

	c.JSON(http.StatusOK, summary)
}

// DeleteReport soft-deletes a report; the row and its snapshot remain.
func (rc *ReportController) DeleteReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := rc.service.DeleteReport(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	invalidateSummary(userID)
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
