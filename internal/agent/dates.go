package agent

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const receiptSuffixLength = 5

// Day truncates t to midnight UTC of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from earlier to later.
// The result is negative when later precedes earlier.
func DaysBetween(earlier time.Time, later time.Time) int {
	return int(Day(later).Sub(Day(earlier)).Hours() / 24)
}

// IsSameMonthDay reports whether two dates share month and day of month, ignoring the year.
// A February 29 date only matches February 29.
func IsSameMonthDay(a time.Time, b time.Time) bool {
	return a.Month() == b.Month() && a.Day() == b.Day()
}

// YearsBetween returns the whole years elapsed from from to now.
// The count drops by one while now's month/day precedes from's month/day.
// For a February 29 origin in a non-leap year, the anniversary is reached on March 1.
func YearsBetween(from time.Time, now time.Time) int {
	years := now.Year() - from.Year()
	if now.Month() < from.Month() || (now.Month() == from.Month() && now.Day() < from.Day()) {
		years--
	}
	return years
}

// ReceiptNumber returns a display-only receipt label built from a base-36 timestamp and random suffix.
// It is not suitable as a storage key.
func ReceiptNumber(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "RCP-" + ts + "-" + randomBase36(receiptSuffixLength)
}

func randomBase36(n int) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	max := big.NewInt(int64(len(alphabet)))

	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(alphabet[i.Int64()])
	}
	return b.String()
}
