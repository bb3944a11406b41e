package services

import (
	"encoding/json"
	"os"
	"time"
)

// FreshnessCache decides whether an on-disk artifact can be served without
// re-running its producing job. An artifact is fresh iff it exists, its
// last-modified local calendar date equals now's, and its contents parse as
// the expected shape. Staleness is purely a function of the wall clock, so
// there is no eviction state to maintain.
type FreshnessCache struct{}

// Load reads the artifact at path into v and reports whether it is fresh.
// Any stat, read, or parse failure counts as stale so the caller falls back
// to regeneration instead of failing the request.
func (FreshnessCache) Load(path string, now time.Time, v any) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !sameCalendarDay(info.ModTime(), now) {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
