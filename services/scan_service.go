package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradesmart_backend/models"
)

// Chart-data failure classes, mapped to distinct HTTP statuses by the
// controller so a client can tell "nothing to show" from "something broke".
var (
	ErrNoChartData  = errors.New("no chart data artifact")
	ErrBadChartData = errors.New("invalid chart data artifact")
)

// JobSpec describes one job of a scan batch: the label it contributes
// under, the script to run, and the artifact the script writes.
type JobSpec struct {
	Label    string
	Script   string
	Artifact string
}

// IntradayJobs is the intraday batch: the 5m and 1m momentum scans.
// Script and artifact names are the fixed contract with the scan scripts.
func IntradayJobs() []JobSpec {
	return []JobSpec{
		{Label: "5m", Script: "scan_momentum_5min.py", Artifact: "results.json"},
		{Label: "1m", Script: "scan_momentum_1min.py", Artifact: "results_1min.json"},
	}
}

const dailyArtifact = "results_44_daily.json"

// Runner launches one external job and reports its terminal state.
type Runner interface {
	Run(ctx context.Context, script string, args ...string) JobResult
}

// ScanService orchestrates external scan jobs and reads their artifacts.
type ScanService struct {
	runner  Runner
	scanDir string
	cache   FreshnessCache
}

// NewScanService creates a scan service reading artifacts from scanDir.
func NewScanService(runner Runner, scanDir string) *ScanService {
	return &ScanService{
		runner:  runner,
		scanDir: scanDir,
	}
}

// RunBatch launches every job in the batch concurrently and returns the
// merged results keyed by label, only after all jobs reach a terminal
// state. Each goroutine owns its own slot of the results slice, so one
// job's failure cannot block or corrupt another's success: a failed job
// contributes an empty list for its label rather than aborting the batch.
func (s *ScanService) RunBatch(ctx context.Context, specs []JobSpec) map[string][]models.ScanRecord {
	slots := make([][]models.ScanRecord, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec JobSpec) {
			defer wg.Done()
			slots[i] = s.runScanJob(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	results := make(map[string][]models.ScanRecord, len(specs))
	for i, spec := range specs {
		results[spec.Label] = slots[i]
	}
	return results
}

// RunIntraday runs the 5m and 1m momentum scans concurrently.
func (s *ScanService) RunIntraday(ctx context.Context) map[string][]models.ScanRecord {
	log.Println("Starting intraday scan (5m + 1m)")
	return s.RunBatch(ctx, IntradayJobs())
}

func (s *ScanService) runScanJob(ctx context.Context, spec JobSpec) []models.ScanRecord {
	if res := s.runner.Run(ctx, spec.Script); res.Failed() {
		log.Printf("Scan %s failed, returning empty result", spec.Label)
		return []models.ScanRecord{}
	}

	records, err := readRecords(filepath.Join(s.scanDir, spec.Artifact))
	if err != nil {
		log.Printf("Failed to read %s results: %v", spec.Label, err)
		return []models.ScanRecord{}
	}
	log.Printf("Scan %s matched %d stocks", spec.Label, len(records))
	return records
}

// Daily returns the 44 EMA daily scan results, serving today's artifact
// when it is still fresh and re-running the scan otherwise.
func (s *ScanService) Daily(ctx context.Context) []models.DailyRecord {
	path := filepath.Join(s.scanDir, dailyArtifact)

	cached := []models.DailyRecord{}
	if s.cache.Load(path, time.Now(), &cached) {
		log.Printf("Daily scan cache fresh, serving %d stocks", len(cached))
		return cached
	}

	log.Println("Starting daily scan (44 EMA)")
	if res := s.runner.Run(ctx, "scan_44ema_daily.py"); res.Failed() {
		log.Println("Daily scan failed, returning empty result")
		return []models.DailyRecord{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read daily results: %v", err)
		return []models.DailyRecord{}
	}
	records := []models.DailyRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("Failed to parse daily results: %v", err)
		return []models.DailyRecord{}
	}
	log.Printf("Daily scan matched %d stocks", len(records))
	return records
}

// FetchOhlc runs the chart-data job for one symbol and timeframe and reads
// back its artifact. A missing artifact maps to ErrNoChartData, a malformed
// one to ErrBadChartData; launch failures surface as is.
func (s *ScanService) FetchOhlc(ctx context.Context, symbol, tf string) ([]models.OhlcCandle, error) {
	symbol = strings.ToUpper(symbol)

	if res := s.runner.Run(ctx, "fetch_ohlc.py", symbol, tf); res.Err != nil {
		return nil, fmt.Errorf("chart data fetch for %s (%s): %w", symbol, tf, res.Err)
	}

	path := filepath.Join(s.scanDir, "data", fmt.Sprintf("%s_%s.json", symbol, tf))
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Could not read %s: %v", path, err)
		return nil, fmt.Errorf("%w for %s (%s)", ErrNoChartData, symbol, tf)
	}

	var candles []models.OhlcCandle
	if err := json.Unmarshal(data, &candles); err != nil {
		log.Printf("Chart data parse error for %s: %v", symbol, err)
		return nil, fmt.Errorf("%w for %s (%s)", ErrBadChartData, symbol, tf)
	}
	return candles, nil
}

func readRecords(path string) ([]models.ScanRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []models.ScanRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if records == nil {
		records = []models.ScanRecord{}
	}
	return records, nil
}
