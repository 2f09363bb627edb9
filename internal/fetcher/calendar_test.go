package fetcher

import (
	"testing"
	"time"
)

func utcDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestIsTradingDayUTCWeekdays(t *testing.T) {
	if !IsTradingDayUTC(utcDate(2025, time.June, 2)) {
		t.Fatal("Monday 2025-06-02 should be a trading day")
	}
	if IsTradingDayUTC(utcDate(2025, time.June, 7)) {
		t.Fatal("Saturday should not be a trading day")
	}
	if IsTradingDayUTC(utcDate(2025, time.June, 8)) {
		t.Fatal("Sunday should not be a trading day")
	}
}

func TestIsTradingDayUTCFixedHolidays(t *testing.T) {
	if IsTradingDayUTC(utcDate(2025, time.January, 1)) {
		t.Fatal("New Year's Day should not be a trading day")
	}
	if IsTradingDayUTC(utcDate(2025, time.December, 25)) {
		t.Fatal("Christmas Day should not be a trading day")
	}
	if IsTradingDayUTC(utcDate(2025, time.December, 26)) {
		t.Fatal("Boxing Day should not be a trading day")
	}
}

func TestIsTradingDayUTCEaster(t *testing.T) {
	// Easter Sunday 2025 falls on April 20.
	if IsTradingDayUTC(utcDate(2025, time.April, 18)) {
		t.Fatal("Good Friday 2025 should not be a trading day")
	}
	if IsTradingDayUTC(utcDate(2025, time.April, 21)) {
		t.Fatal("Easter Monday 2025 should not be a trading day")
	}
	if !IsTradingDayUTC(utcDate(2025, time.April, 22)) {
		t.Fatal("Tuesday after Easter should be a trading day")
	}
}

func TestIsTradingDayUTCObservedHolidays(t *testing.T) {
	// Christmas 2021 fell on a Saturday, observed Friday Dec 24.
	if IsTradingDayUTC(utcDate(2021, time.December, 24)) {
		t.Fatal("observed Christmas should not be a trading day")
	}
	// Boxing Day 2021 fell on a Sunday, observed Monday Dec 27.
	if IsTradingDayUTC(utcDate(2021, time.December, 27)) {
		t.Fatal("observed Boxing Day should not be a trading day")
	}
	// New Year 2022 fell on a Saturday, observed Friday Dec 31, 2021.
	if IsTradingDayUTC(utcDate(2021, time.December, 31)) {
		t.Fatal("observed New Year should not be a trading day")
	}
}

func TestEasterSunday(t *testing.T) {
	cases := map[int]time.Time{
		2024: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		2025: time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC),
		2026: time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC),
	}
	for year, want := range cases {
		if got := easterSunday(year); !got.Equal(want) {
			t.Fatalf("easter %d: want %s, got %s", year, want.Format(time.DateOnly), got.Format(time.DateOnly))
		}
	}
}
