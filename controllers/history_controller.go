package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradesmart_backend/models"
	"tradesmart_backend/services/history"
)

// historyLimit caps how many raw records one history view reads.
const historyLimit = 1000

const dateLayout = "2006-01-02"

// RecordSource is the slice of the result store the history endpoints need.
type RecordSource interface {
	RecentRecords(ctx context.Context, strategy, sinceDate string, limit int64) ([]models.ScanRecord, error)
	WeeklySummaries(ctx context.Context) ([]models.WeeklySummary, error)
}

// HistoryController serves the scan-history and weekly-summary views
type HistoryController struct {
	store RecordSource
}

// NewHistoryController creates a new history controller
func NewHistoryController(store RecordSource) *HistoryController {
	return &HistoryController{store: store}
}

// History5m returns this week's 5m records grouped by scan date.
// GET /api/history/5m
func (hc *HistoryController) History5m(c *gin.Context) {
	hc.history(c, models.Strategy5m)
}

// History1m returns this week's 1m records grouped by scan date.
// GET /api/history/1m
func (hc *HistoryController) History1m(c *gin.Context) {
	hc.history(c, models.Strategy1m)
}

func (hc *HistoryController) history(c *gin.Context, strategy string) {
	since := history.WeekStart(time.Now()).Format(dateLayout)

	records, err := hc.store.RecentRecords(c.Request.Context(), strategy, since, historyLimit)
	if err != nil {
		log.Printf("History query failed for %s: %v", strategy, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scan history"})
		return
	}

	c.JSON(http.StatusOK, history.GroupByDate(records))
}

// Summary returns this week's outcome summary for both strategies.
// GET /api/summary
func (hc *HistoryController) Summary(c *gin.Context) {
	since := history.WeekStart(time.Now()).Format(dateLayout)

	summary5m, err := hc.weekSummary(c.Request.Context(), models.Strategy5m, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load weekly summary"})
		return
	}
	summary1m, err := hc.weekSummary(c.Request.Context(), models.Strategy1m, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load weekly summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary_5m": summary5m,
		"summary_1m": summary1m,
	})
}

func (hc *HistoryController) weekSummary(ctx context.Context, strategy, since string) (models.StrategySummary, error) {
	records, err := hc.store.RecentRecords(ctx, strategy, since, historyLimit)
	if err != nil {
		log.Printf("Summary query failed for %s: %v", strategy, err)
		return models.StrategySummary{}, err
	}
	return history.Summarize(records), nil
}

// SummaryAll returns every persisted weekly rollup, merged per week and
// sorted most recent first.
// GET /api/summary/all
func (hc *HistoryController) SummaryAll(c *gin.Context) {
	rollups, err := hc.store.WeeklySummaries(c.Request.Context())
	if err != nil {
		log.Printf("Weekly summaries query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load weekly summaries"})
		return
	}

	c.JSON(http.StatusOK, history.MergeWeeklySummaries(rollups))
}
