package services

import (
	"time"
)

const monthKeyLayout = "2006-01"

func monthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

func monthFromKey(key string) (time.Time, bool) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// monthKeyDiff returns a-b in whole months, e.g. ("2025-03","2025-01") = 2.
func monthKeyDiff(a, b string) (int, bool) {
	at, ok := monthFromKey(a)
	if !ok {
		return 0, false
	}
	bt, ok := monthFromKey(b)
	if !ok {
		return 0, false
	}
	return (at.Year()-bt.Year())*12 + int(at.Month()) - int(bt.Month()), true
}

// isConsecutiveMonthKeys expects keys sorted newest first and checks each
// adjacent pair is exactly one month apart.
func isConsecutiveMonthKeys(keys []string) bool {
	for i := 0; i < len(keys)-1; i++ {
		diff, ok := monthKeyDiff(keys[i], keys[i+1])
		if !ok || diff != 1 {
			return false
		}
	}
	return true
}

// shiftMonth returns the first day of the month delta months away from t.
// time.Date normalizes overflow, so January minus one lands in December.
func shiftMonth(t time.Time, delta int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(delta), 1, 0, 0, 0, 0, t.Location())
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
