package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"tradesmart_backend/models"
	"tradesmart_backend/services"
	"tradesmart_backend/services/history"
)

const dateLayout = "2006-01-02"

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron   *gocron.Scheduler
	runner *services.JobRunner
	store  *services.ResultStore
}

// NewScheduler creates a new scheduler instance. Jobs run in the service's
// local time zone, the same zone used for scan dates and week boundaries.
func NewScheduler(runner *services.JobRunner, store *services.ResultStore) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.Local),
		runner: runner,
		store:  store,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Resolve pending 5m trades every 15 minutes
	s.cron.Every(15).Minutes().SingletonMode().Do(func() {
		s.runBacktest("backtest_wins_5min.py")
	})

	// Resolve pending 1m trades every 30 minutes
	s.cron.Every(30).Minutes().SingletonMode().Do(func() {
		s.runBacktest("backtest_wins_1min.py")
	})

	// Summarize and clear the week on Sunday evening
	s.cron.Every(1).Week().Sunday().At("18:00").SingletonMode().Do(func() {
		s.weeklyRollup()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// runBacktest triggers one backtest pass. The script updates record
// statuses in the store directly; a failure is logged and the next tick
// runs as scheduled.
func (s *Scheduler) runBacktest(script string) {
	log.Printf("Running backtest pass: %s", script)

	res := s.runner.Run(context.Background(), script)
	if res.Failed() {
		log.Printf("Backtest %s failed (exit %d): %v", script, res.ExitCode, res.Err)
		return
	}
	log.Printf("Backtest %s completed", script)
}

// weeklyRollup writes one summary record per strategy for the running week
// and then clears that week's raw records.
func (s *Scheduler) weeklyRollup() {
	log.Println("Running weekly rollup...")

	now := time.Now()
	monday := history.WeekStart(now)
	friday := monday.AddDate(0, 0, 4)

	for _, strategy := range []string{models.Strategy5m, models.Strategy1m} {
		s.rollupStrategy(strategy, monday.Format(dateLayout), friday.Format(dateLayout), now)
	}

	log.Println("Weekly rollup completed")
}

func (s *Scheduler) rollupStrategy(strategy, weekStart, weekEnd string, now time.Time) {
	ctx := context.Background()

	records, err := s.store.RecordsInRange(ctx, strategy, weekStart, weekEnd)
	if err != nil {
		log.Printf("Rollup query failed for %s: %v", strategy, err)
		return
	}
	if len(records) == 0 {
		log.Printf("No trades to summarize for %s", strategy)
		return
	}

	summary := history.Summarize(records)
	rollup := models.WeeklySummary{
		Strategy:    strategy,
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
		TotalTrades: summary.Total,
		Wins:        summary.Wins,
		Losses:      summary.Losses,
		NoHits:      summary.NoHits,
		WinRate:     summary.WinRate,
		CreatedAt:   now,
	}

	if err := s.store.InsertWeeklySummary(ctx, rollup); err != nil {
		log.Printf("Failed to save weekly summary for %s: %v", strategy, err)
		return
	}
	log.Printf("Weekly summary saved for %s (%s win rate)", strategy, summary.WinRate)

	deleted, err := s.store.DeleteRecordsInRange(ctx, strategy, weekStart, weekEnd)
	if err != nil {
		log.Printf("Failed to clear summarized trades for %s: %v", strategy, err)
		return
	}
	log.Printf("Deleted %d summarized trades for %s", deleted, strategy)
}
