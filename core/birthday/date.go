// Package birthday maps calendar dates onto verse candidates.
//
// The mapping is pure arithmetic over the day, month and year fields.
// Dates are not checked for calendar correctness: February 30 hashes
// like any other triple.
package birthday

import (
	"fmt"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
)

// Date is a calendar date as supplied by the caller.
type Date struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// FromFields builds a Date from optional form fields.
// All three fields must be present and positive, otherwise
// ErrIncompleteInput is returned and no lookup should be attempted.
func FromFields(day, month, year *int) (Date, error) {
	if day == nil || month == nil || year == nil {
		return Date{}, errors.ErrIncompleteInput
	}
	d := Date{Day: *day, Month: *month, Year: *year}
	if !d.Complete() {
		return Date{}, errors.ErrIncompleteInput
	}
	return d, nil
}

// Complete reports whether every field is positive.
func (d Date) Complete() bool {
	return d.Day > 0 && d.Month > 0 && d.Year > 0
}

// Seed returns day + month + year, the value used for chapter and verse selection.
func (d Date) Seed() int {
	return d.Day + d.Month + d.Year
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
