package lookup

import (
	"context"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

// User-visible messages.
const (
	IncompleteMessage = "Please enter your complete birthday."
	FailedMessage     = "Failed to fetch verse. Please try again."
)

// Input is the raw birthday form. Nil fields have not been filled in.
type Input struct {
	Day   *int `json:"day"`
	Month *int `json:"month"`
	Year  *int `json:"year"`
}

// NewInput builds a complete Input from a date.
func NewInput(d birthday.Date) Input {
	day, month, year := d.Day, d.Month, d.Year
	return Input{Day: &day, Month: &month, Year: &year}
}

// Outcome is the full result of Service.Resolve.
type Outcome struct {
	Date      birthday.Date      `json:"date"`
	Candidate birthday.Candidate `json:"candidate"`
	Book      string             `json:"book"`
	Result    verse.Result       `json:"result"`
}

// Service is the boundary between user input and the verse resolver.
// Nothing it calls can make it panic or return an unclassified error.
type Service struct {
	resolver *verse.Resolver
}

// NewService creates a service around a resolver.
func NewService(r *verse.Resolver) *Service {
	return &Service{resolver: r}
}

// Catalog returns the catalog used for hashing.
func (s *Service) Catalog() *catalog.Catalog {
	return s.resolver.Catalog()
}

// Resolve hashes d and resolves it to a verse.
// Errors match errors.ErrIncompleteInput or errors.ErrTransport.
func (s *Service) Resolve(ctx context.Context, d birthday.Date) (Outcome, error) {
	if !d.Complete() {
		return Outcome{}, errors.ErrIncompleteInput
	}

	c := s.resolver.Catalog()
	cand := birthday.Hash(d, c)
	result, err := s.resolver.Resolve(ctx, cand, d)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Date:      d,
		Candidate: cand,
		Book:      c.At(cand.BookIndex).Name,
		Result:    result,
	}, nil
}

// Lookup runs one lookup for the given form input and returns its terminal
// state, attributed to request id. Incomplete input performs no lookup and
// yields Idle.
func (s *Service) Lookup(ctx context.Context, id uint64, in Input) State {
	d, err := birthday.FromFields(in.Day, in.Month, in.Year)
	if err != nil {
		return Idle().WithRequestID(id)
	}

	out, err := s.Resolve(ctx, d)
	if err != nil {
		return Failed(id, MessageFor(err))
	}
	return Success(id, out.Result)
}

// MessageFor maps an error to the message shown to the user.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, errors.ErrIncompleteInput):
		return IncompleteMessage
	case errors.Is(err, errors.ErrInvalidInput):
		return birthday.InvalidDateMessage
	default:
		return FailedMessage
	}
}
