package models

import "time"

// Strategy names under which scan records are classified
const (
	Strategy5m = "5m_momentum"
	Strategy1m = "1m_momentum"
)

// Outcome statuses assigned by the backtest pass
const (
	StatusWin     = "win"
	StatusLoss    = "loss"
	StatusNoHit   = "no_hit"
	StatusPending = "pending"
)

// ScanRecord is one classified observation of a symbol produced by a
// momentum scan. Records are appended per (symbol, strategy, scan_date);
// re-scans of the same day may produce duplicates and the history views
// keep all of them.
type ScanRecord struct {
	Symbol    string  `bson:"symbol" json:"symbol"`
	Close     float64 `bson:"close" json:"close"`
	Ema22     float64 `bson:"ema22,omitempty" json:"ema22,omitempty"`
	Ema9      float64 `bson:"ema9,omitempty" json:"ema9,omitempty"`
	Volume    int64   `bson:"volume" json:"volume"`
	Timestamp string  `bson:"timestamp" json:"timestamp"`
	ScanDate  string  `bson:"scan_date" json:"scan_date"`
	Strategy  string  `bson:"strategy" json:"strategy"`
	StopLoss  float64 `bson:"stop_loss,omitempty" json:"stop_loss,omitempty"`
	Target    float64 `bson:"target,omitempty" json:"target,omitempty"`
	Status    string  `bson:"status,omitempty" json:"status,omitempty"`
}

// DailyRecord is one match from the daily 44 EMA scan. Daily results live
// only in the scan artifact, never in the store.
type DailyRecord struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
	Ema44  float64 `json:"ema44"`
	Volume int64   `json:"volume"`
}

// OhlcCandle is a single chart candle read back from a fetch_ohlc artifact.
// The EMA field present depends on the timeframe (ema22 for 5m, ema9 for 1m).
type OhlcCandle struct {
	Time   int64    `json:"time"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Ema22  *float64 `json:"ema22,omitempty"`
	Ema9   *float64 `json:"ema9,omitempty"`
	Volume int64    `json:"volume"`
}

// WeeklySummary is a persisted rollup, one record per (week, strategy).
// Records are immutable once written; a re-run of the weekly job writes a
// new record and readers prefer the newest created_at.
type WeeklySummary struct {
	Strategy    string    `bson:"strategy" json:"strategy"`
	WeekStart   string    `bson:"week_start" json:"week_start"`
	WeekEnd     string    `bson:"week_end" json:"week_end"`
	TotalTrades int       `bson:"total_trades" json:"total_trades"`
	Wins        int       `bson:"wins" json:"wins"`
	Losses      int       `bson:"losses" json:"losses"`
	NoHits      int       `bson:"no_hits" json:"no_hits"`
	WinRate     string    `bson:"win_rate" json:"win_rate"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// StrategySummary is the wire form of a week's outcome counts for one
// strategy, as served by /api/summary and /api/summary/all.
type StrategySummary struct {
	Total   int    `json:"total"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	NoHits  int    `json:"noHits"`
	WinRate string `json:"winRate"`
}

// WeeklyRollup is one merged entry of /api/summary/all, combining both
// strategies' rollups for the same week.
type WeeklyRollup struct {
	WeekStart string           `json:"week_start"`
	WeekEnd   string           `json:"week_end"`
	Summary5m *StrategySummary `json:"summary_5m,omitempty"`
	Summary1m *StrategySummary `json:"summary_1m,omitempty"`
}
