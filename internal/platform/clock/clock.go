package clock

import "time"

// Clock abstracts the current time so date-sensitive logic can be tested.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Real returns the wall clock.
func Real() Clock {
	return realClock{}
}

// Fixed is a Clock frozen at a single instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Date truncates t to midnight of its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date according to c.
func Today(c Clock) time.Time {
	return Date(c.Now())
}
