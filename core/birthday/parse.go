package birthday

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
)

// InvalidDateMessage is the user-facing message for unparseable dates.
const InvalidDateMessage = "Invalid date format. Use 'YYYY-MM-DD'."

// dateGrammar is the participle grammar for ISO calendar dates.
// Examples: "1990-05-15", "2001-1-9"
//
//nolint:govet // participle grammar tags are not standard struct tags
type dateGrammar struct {
	Year  int `@Int "-"`
	Month int `@Int "-"`
	Day   int `@Int`
}

var dateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `-`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var dateParser = participle.MustBuild[dateGrammar](
	participle.Lexer(dateLexer),
	participle.Elide("Whitespace"),
)

// ParseDate parses a YYYY-MM-DD string.
// The result is not range-checked; use Date.Complete before hashing user input.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, errors.ErrIncompleteInput
	}

	parsed, err := dateParser.ParseString("", s)
	if err != nil {
		return Date{}, errors.NewParse("date", "", InvalidDateMessage)
	}

	return Date{Day: parsed.Day, Month: parsed.Month, Year: parsed.Year}, nil
}
