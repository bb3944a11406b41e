package scheduler

// Package scheduler drives the recurring background work of the scanner:
// - periodic backtest passes that resolve pending trades to win/loss/no_hit
// - the weekly rollup that summarizes and clears each strategy's records
//
// All jobs run in singleton mode so a slow tick is skipped rather than
// overlapped. The jobs are implemented in jobs.go
