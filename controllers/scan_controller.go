package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradesmart_backend/models"
	"tradesmart_backend/services"
)

// ScanRunner is the slice of the scan service the scan endpoints need.
type ScanRunner interface {
	RunIntraday(ctx context.Context) map[string][]models.ScanRecord
	Daily(ctx context.Context) []models.DailyRecord
	FetchOhlc(ctx context.Context, symbol, tf string) ([]models.OhlcCandle, error)
}

// ScanController handles scan-trigger and chart-data requests
type ScanController struct {
	scans ScanRunner
}

// NewScanController creates a new scan controller
func NewScanController(scans ScanRunner) *ScanController {
	return &ScanController{scans: scans}
}

// Intraday triggers the 5m and 1m momentum scans concurrently and responds
// once both have finished. A failed scan contributes an empty array for its
// key rather than dropping it.
// GET /api/scan/intraday
func (sc *ScanController) Intraday(c *gin.Context) {
	results := sc.scans.RunIntraday(c.Request.Context())
	c.JSON(http.StatusOK, results)
}

// Daily returns the 44 EMA daily scan, cache-checked against today's artifact.
// GET /api/scan/daily
func (sc *ScanController) Daily(c *gin.Context) {
	records := sc.scans.Daily(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"daily": records})
}

var validTimeframes = map[string]bool{"5m": true, "1m": true, "1d": true}

// Ohlc triggers the chart-data job for a symbol and returns its candles.
// 404 means the job produced no artifact, 500 means the artifact was
// malformed or the job could not be launched.
// GET /api/ohlc/:symbol?tf=5m|1m|1d
func (sc *ScanController) Ohlc(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	tf := c.DefaultQuery("tf", "5m")

	if !validTimeframes[tf] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid timeframe %q", tf)})
		return
	}

	candles, err := sc.scans.FetchOhlc(c.Request.Context(), symbol, tf)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoChartData):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No chart data for %s (%s)", symbol, tf)})
		case errors.Is(err, services.ErrBadChartData):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid JSON format"})
		default:
			log.Printf("Chart data fetch failed for %s (%s): %v", symbol, tf, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Chart data fetch failed"})
		}
		return
	}

	c.JSON(http.StatusOK, candles)
}
