package intake

import (
	"sort"
	"time"

	"dieter"
)

// RecordsOn returns the records subject logged on the calendar day of day,
// in day's location. An empty subject matches every entry.
func RecordsOn(entries []dieter.LogEntry, subject string, day time.Time) []dieter.NutritionRecord {
	y, m, d := day.Date()
	loc := day.Location()

	var records []dieter.NutritionRecord
	for _, e := range entries {
		if subject != "" && e.Subject != subject {
			continue
		}
		ey, em, ed := e.LoggedAt.In(loc).Date()
		if ey == y && em == m && ed == d {
			records = append(records, e.Record)
		}
	}
	return records
}

// RecentFoodNames lists food names from entries, most recent first, skipping
// fallback records and repeats. A non-positive limit means no limit.
func RecentFoodNames(entries []dieter.LogEntry, limit int) []string {
	sorted := make([]dieter.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LoggedAt.After(sorted[j].LoggedAt)
	})

	names := make([]string, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, e := range sorted {
		if e.Record.IsFallback() || e.Record.FoodName == dieter.UnknownFoodName {
			continue
		}
		if seen[e.Record.FoodName] {
			continue
		}
		seen[e.Record.FoodName] = true
		names = append(names, e.Record.FoodName)
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names
}
