package fetcher

import "time"

// IsTradingDayUTC reports whether the London gold market trades on the
// given instant's UTC date. Weekends and London bank holidays are closed.
func IsTradingDayUTC(now time.Time) bool {
	date := now.UTC()
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isLondonHoliday(date)
}

func isLondonHoliday(date time.Time) bool {
	year := date.Year()
	if isFixedOrObservedHoliday(date, time.January, 1) {
		return true
	}
	// New Year of the following year can be observed in late December.
	if sameDate(date, observedDate(time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC))) {
		return true
	}
	if isFixedOrObservedHoliday(date, time.December, 25) {
		return true
	}
	if isFixedOrObservedHoliday(date, time.December, 26) {
		return true
	}
	easter := easterSunday(year)
	return sameDate(date, easter.AddDate(0, 0, -2)) || sameDate(date, easter.AddDate(0, 0, 1))
}

func isFixedOrObservedHoliday(date time.Time, month time.Month, day int) bool {
	holiday := time.Date(date.Year(), month, day, 0, 0, 0, 0, time.UTC)
	return sameDate(date, holiday) || sameDate(date, observedDate(holiday))
}

func observedDate(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// easterSunday computes western Easter via the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
