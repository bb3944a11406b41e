// Package history buckets raw scan records by calendar date and rolls them
// into weekly win-rate summaries. All functions are pure over their inputs;
// record ordering is taken as given (the store serves timestamp-descending),
// so "most recent activity first" falls out of the input order.
package history

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradesmart_backend/models"
)

// DateBucket holds one calendar date's records and outcome counters.
type DateBucket struct {
	Stocks  []models.ScanRecord `json:"stocks"`
	Win     int                 `json:"win"`
	Loss    int                 `json:"loss"`
	NoHit   int                 `json:"no_hit"`
	Pending int                 `json:"pending"`
}

// Grouped is a date-keyed view of scan records that marshals its keys in
// first-seen order, so the newest dates lead when the input is sorted by
// timestamp descending.
type Grouped struct {
	order   []string
	buckets map[string]*DateBucket
}

// Bucket returns the bucket for a date, or nil if the date never appeared.
func (g *Grouped) Bucket(date string) *DateBucket {
	return g.buckets[date]
}

// Dates returns the bucket keys in first-seen order.
func (g *Grouped) Dates() []string {
	return g.order
}

// MarshalJSON emits a JSON object keyed by date, preserving first-seen order.
func (g *Grouped) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, date := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(date)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(g.buckets[date])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GroupByDate buckets records under their scan_date and tallies outcome
// counters. Every record lands in exactly one bucket; duplicates are kept.
// A status outside win/loss/no_hit (including absent) counts as pending.
func GroupByDate(records []models.ScanRecord) *Grouped {
	grouped := &Grouped{buckets: make(map[string]*DateBucket)}

	for _, record := range records {
		bucket, ok := grouped.buckets[record.ScanDate]
		if !ok {
			bucket = &DateBucket{Stocks: []models.ScanRecord{}}
			grouped.buckets[record.ScanDate] = bucket
			grouped.order = append(grouped.order, record.ScanDate)
		}

		bucket.Stocks = append(bucket.Stocks, record)
		switch record.Status {
		case models.StatusWin:
			bucket.Win++
		case models.StatusLoss:
			bucket.Loss++
		case models.StatusNoHit:
			bucket.NoHit++
		default:
			bucket.Pending++
		}
	}
	return grouped
}

// Summarize tallies outcome counts and the win rate over a record set.
// The win rate is wins/total*100 rounded to two decimals, "0.00" for an
// empty set.
func Summarize(records []models.ScanRecord) models.StrategySummary {
	summary := models.StrategySummary{Total: len(records)}

	for _, record := range records {
		switch record.Status {
		case models.StatusWin:
			summary.Wins++
		case models.StatusLoss:
			summary.Losses++
		case models.StatusNoHit:
			summary.NoHits++
		}
	}

	summary.WinRate = WinRate(summary.Wins, summary.Total)
	return summary
}

// WinRate formats wins/total*100 as a fixed two-decimal percentage string.
func WinRate(wins, total int) string {
	if total == 0 {
		return "0.00"
	}
	rate := decimal.NewFromInt(int64(wins)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100))
	return rate.Round(2).StringFixed(2)
}

// WeekStart returns the most recent Monday 00:00:00 in local time relative
// to now. Sunday counts as the end of the running week, not the start of
// the next one. Local time is used uniformly for scan dates, artifact
// freshness, and week boundaries.
func WeekStart(now time.Time) time.Time {
	now = now.Local()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())
}

// MergeWeeklySummaries groups rollup records by week and attaches each
// strategy's summary under its own field. Duplicate rollups for the same
// (week, strategy) key resolve to the newest created_at. Entries come back
// sorted by week descending; lexical comparison is valid because the keys
// are built from ISO date strings.
func MergeWeeklySummaries(rollups []models.WeeklySummary) []models.WeeklyRollup {
	type weekKey struct {
		start, end string
	}

	newest := make(map[weekKey]map[string]models.WeeklySummary)
	var order []weekKey
	for _, rollup := range rollups {
		key := weekKey{rollup.WeekStart, rollup.WeekEnd}
		byStrategy, ok := newest[key]
		if !ok {
			byStrategy = make(map[string]models.WeeklySummary)
			newest[key] = byStrategy
			order = append(order, key)
		}
		current, seen := byStrategy[rollup.Strategy]
		if !seen || rollup.CreatedAt.After(current.CreatedAt) {
			byStrategy[rollup.Strategy] = rollup
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].start != order[j].start {
			return order[i].start > order[j].start
		}
		return order[i].end > order[j].end
	})

	merged := make([]models.WeeklyRollup, 0, len(order))
	for _, key := range order {
		entry := models.WeeklyRollup{WeekStart: key.start, WeekEnd: key.end}
		if rollup, ok := newest[key][models.Strategy5m]; ok {
			entry.Summary5m = toStrategySummary(rollup)
		}
		if rollup, ok := newest[key][models.Strategy1m]; ok {
			entry.Summary1m = toStrategySummary(rollup)
		}
		merged = append(merged, entry)
	}
	return merged
}

func toStrategySummary(rollup models.WeeklySummary) *models.StrategySummary {
	return &models.StrategySummary{
		Total:   rollup.TotalTrades,
		Wins:    rollup.Wins,
		Losses:  rollup.Losses,
		NoHits:  rollup.NoHits,
		WinRate: rollup.WinRate,
	}
}
