package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeRunner stands in for the external scripts: each Run call is recorded
// and dispatched to a per-script handler that can write artifacts or fail.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	handle map[string]func(args []string) JobResult
}

func (f *fakeRunner) Run(ctx context.Context, script string, args ...string) JobResult {
	f.mu.Lock()
	f.calls = append(f.calls, script)
	f.mu.Unlock()

	if h, ok := f.handle[script]; ok {
		return h(args)
	}
	return JobResult{ExitCode: 0}
}

func (f *fakeRunner) callCount(script string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == script {
			n++
		}
	}
	return n
}

const twoRecords = `[
  {"symbol":"RELIANCE","close":2950.5,"ema22":2948.1,"volume":38420,
   "timestamp":"2025-08-27T10:30:00+05:30","scan_date":"2025-08-27",
   "strategy":"5m_momentum","stop_loss":2935.75,"target":2980.0,"status":"pending"},
  {"symbol":"INFY","close":1830.2,"ema22":1828.9,"volume":20110,
   "timestamp":"2025-08-27T10:30:00+05:30","scan_date":"2025-08-27",
   "strategy":"5m_momentum","status":"pending"}
]`

func TestRunBatchFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "results.json", twoRecords)

	runner := &fakeRunner{handle: map[string]func([]string) JobResult{
		"scan_momentum_1min.py": func([]string) JobResult {
			return JobResult{ExitCode: -1, Err: errors.New("spawn failed")}
		},
	}}
	svc := NewScanService(runner, dir)

	results := svc.RunBatch(context.Background(), IntradayJobs())

	if len(results) != 2 {
		t.Fatalf("both labels must be present, got %v", results)
	}
	if got := results["5m"]; len(got) != 2 || got[0].Symbol != "RELIANCE" {
		t.Fatalf("unexpected 5m results: %+v", got)
	}
	failed, ok := results["1m"]
	if !ok {
		t.Fatalf("failed label must not be omitted")
	}
	if failed == nil || len(failed) != 0 {
		t.Fatalf("failed job must contribute an empty list, got %+v", failed)
	}
}

func TestRunBatchUnparseableArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "results.json", `{definitely not an array`)
	writeArtifact(t, dir, "results_1min.json", `[]`)

	svc := NewScanService(&fakeRunner{}, dir)
	results := svc.RunBatch(context.Background(), IntradayJobs())

	if got := results["5m"]; got == nil || len(got) != 0 {
		t.Fatalf("unparseable artifact must yield an empty list, got %+v", got)
	}
}

func TestRunBatchWaitsForSlowJob(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "results.json", `[]`)

	runner := &fakeRunner{handle: map[string]func([]string) JobResult{
		"scan_momentum_1min.py": func([]string) JobResult {
			time.Sleep(50 * time.Millisecond)
			writeArtifact(t, dir, "results_1min.json", twoRecords)
			return JobResult{ExitCode: 0}
		},
	}}
	svc := NewScanService(runner, dir)

	results := svc.RunBatch(context.Background(), IntradayJobs())
	if len(results["1m"]) != 2 {
		t.Fatalf("batch responded before the slow job finished: %+v", results["1m"])
	}
}

func TestDailyServedFromFreshCache(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "results_44_daily.json",
		`[{"symbol":"TCS","close":4100.0,"ema44":4080.5,"volume":9000}]`)

	runner := &fakeRunner{}
	svc := NewScanService(runner, dir)

	records := svc.Daily(context.Background())
	if len(records) != 1 || records[0].Symbol != "TCS" {
		t.Fatalf("unexpected daily records: %+v", records)
	}
	if runner.callCount("scan_44ema_daily.py") != 0 {
		t.Fatalf("fresh cache must not trigger the daily scan")
	}
}

func TestDailyRegeneratesStaleArtifact(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "results_44_daily.json", `[]`)
	yesterday := time.Now().AddDate(0, 0, -1)
	if err := os.Chtimes(path, yesterday, yesterday); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	runner := &fakeRunner{handle: map[string]func([]string) JobResult{
		"scan_44ema_daily.py": func([]string) JobResult {
			writeArtifact(t, dir, "results_44_daily.json",
				`[{"symbol":"HDFCBANK","close":1690.0,"ema44":1684.3,"volume":31000}]`)
			return JobResult{ExitCode: 0}
		},
	}}
	svc := NewScanService(runner, dir)

	records := svc.Daily(context.Background())
	if runner.callCount("scan_44ema_daily.py") != 1 {
		t.Fatalf("stale artifact must trigger regeneration")
	}
	if len(records) != 1 || records[0].Symbol != "HDFCBANK" {
		t.Fatalf("unexpected daily records: %+v", records)
	}
}

func TestDailyScanFailureReturnsEmpty(t *testing.T) {
	runner := &fakeRunner{handle: map[string]func([]string) JobResult{
		"scan_44ema_daily.py": func([]string) JobResult { return JobResult{ExitCode: 1} },
	}}
	svc := NewScanService(runner, t.TempDir())

	records := svc.Daily(context.Background())
	if records == nil || len(records) != 0 {
		t.Fatalf("failed daily scan must return an empty list, got %+v", records)
	}
}

func TestFetchOhlc(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArtifact(t, filepath.Join(dir, "data"), "RELIANCE_5m.json",
		`[{"time":1756269000,"open":2948.0,"high":2952.5,"low":2946.1,"close":2950.5,"ema22":2949.0,"volume":38420},
		  {"time":1756269300,"open":2950.5,"high":2955.0,"low":2949.8,"close":2954.2,"ema22":2949.5,"volume":29010}]`)

	svc := NewScanService(&fakeRunner{}, dir)

	candles, err := svc.FetchOhlc(context.Background(), "reliance", "5m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 || candles[0].Time >= candles[1].Time {
		t.Fatalf("unexpected candles: %+v", candles)
	}
	if candles[0].Ema22 == nil || *candles[0].Ema22 != 2949.0 {
		t.Fatalf("ema22 not carried through: %+v", candles[0])
	}
}

func TestFetchOhlcNoArtifact(t *testing.T) {
	svc := NewScanService(&fakeRunner{}, t.TempDir())

	_, err := svc.FetchOhlc(context.Background(), "INFY", "1m")
	if !errors.Is(err, ErrNoChartData) {
		t.Fatalf("expected ErrNoChartData, got %v", err)
	}
}

func TestFetchOhlcBadArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArtifact(t, filepath.Join(dir, "data"), "INFY_1m.json", `{broken`)

	svc := NewScanService(&fakeRunner{}, dir)

	_, err := svc.FetchOhlc(context.Background(), "INFY", "1m")
	if !errors.Is(err, ErrBadChartData) {
		t.Fatalf("expected ErrBadChartData, got %v", err)
	}
}

func TestFetchOhlcLaunchFailure(t *testing.T) {
	runner := &fakeRunner{handle: map[string]func([]string) JobResult{
		"fetch_ohlc.py": func([]string) JobResult {
			return JobResult{ExitCode: -1, Err: errors.New("spawn failed")}
		},
	}}
	svc := NewScanService(runner, t.TempDir())

	_, err := svc.FetchOhlc(context.Background(), "INFY", "1m")
	if err == nil || errors.Is(err, ErrNoChartData) || errors.Is(err, ErrBadChartData) {
		t.Fatalf("launch failure must surface as its own error, got %v", err)
	}
}
