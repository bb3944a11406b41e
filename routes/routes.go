package routes

import (
	"github.com/gin-gonic/gin"

	"tradesmart_backend/controllers"
	"tradesmart_backend/services"
)

// SetupRoutes sets up all API routes. Paths match the original dashboard
// contract and must stay stable for the frontend.
func SetupRoutes(router *gin.Engine, store *services.ResultStore, scans *services.ScanService) {
	// Initialize controllers
	scanController := controllers.NewScanController(scans)
	historyController := controllers.NewHistoryController(store)

	api := router.Group("/api")
	{
		// Scan triggers
		scan := api.Group("/scan")
		{
			scan.GET("/intraday", scanController.Intraday)
			scan.GET("/daily", scanController.Daily)
		}

		// Chart data
		api.GET("/ohlc/:symbol", scanController.Ohlc)

		// Scan history
		hist := api.Group("/history")
		{
			hist.GET("/5m", historyController.History5m)
			hist.GET("/1m", historyController.History1m)
		}

		// Weekly summaries
		api.GET("/summary", historyController.Summary)
		api.GET("/summary/all", historyController.SummaryAll)
	}
}
