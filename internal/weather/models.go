package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the only accepted textual form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or timezone semantics.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses s strictly as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrWrongDateFormat, s)
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Record is one daily weather observation.
// Optional fields are nil when absent and serialise as null.
type Record struct {
	ID           int64     `json:"id"`
	Date         *Date     `json:"date"`
	Lat          *float64  `json:"lat"`
	Lon          *float64  `json:"lon"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	Temperatures []float64 `json:"temperatures"`
}

func (r Record) String() string {
	date := "<nil>"
	if r.Date != nil {
		date = r.Date.String()
	}
	return fmt.Sprintf("Record{id=%d, date=%s, city=%s, state=%s, temperatures=%d}",
		r.ID, date, deref(r.City), deref(r.State), len(r.Temperatures))
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
