package ledger

import "time"

// Clock supplies the current time to ledger operations. Services take
// an injected Clock instead of reading the wall clock inside
// transaction logic, so expiration boundaries are deterministic in
// tests.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a Clock pinned to t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
