package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrInUse is returned when a delete would orphan referencing records.
	ErrInUse = errors.New("record is referenced by other records")
	// ErrInvalidReference is returned when a foreign key points at nothing.
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrBorrowerNotOnLoan is returned for a copy that has a borrower but is not on loan.
	ErrBorrowerNotOnLoan = errors.New("a copy with a borrower must be on loan")
)

// PageSize is the number of rows per list page.
const PageSize = 10

// LoanStatus is the availability of a single copy.
type LoanStatus string

const (
	StatusMaintenance LoanStatus = "m"
	StatusOnLoan      LoanStatus = "o"
	StatusAvailable   LoanStatus = "a"
	StatusReserved    LoanStatus = "r"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved:
		return true
	}
	return false
}

func (s LoanStatus) String() string {
	switch s {
	case StatusMaintenance:
		return "Maintenance"
	case StatusOnLoan:
		return "On loan"
	case StatusAvailable:
		return "Available"
	case StatusReserved:
		return "Reserved"
	}
	return string(s)
}

type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Author struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	DateOfBirth pgtype.Date `json:"date_of_birth"`
	DateOfDeath pgtype.Date `json:"date_of_death"`
}

// Name renders the author the way lists show it: "Last, First".
func (a Author) Name() string {
	return fmt.Sprintf("%s, %s", a.LastName, a.FirstName)
}

type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AuthorID   *string   `json:"author_id"`
	Author     *Author   `json:"author,omitempty"`
	Summary    string    `json:"summary"`
	ISBN       string    `json:"isbn"`
	LanguageID *string   `json:"language_id"`
	Language   *Language `json:"language,omitempty"`
	Genres     []Genre   `json:"genres,omitempty"`
}

// BookInstance is one loanable copy of a Book.
type BookInstance struct {
	ID         string      `json:"id"`
	BookID     string      `json:"book_id"`
	BookTitle  string      `json:"book_title,omitempty"`
	Imprint    string      `json:"imprint"`
	DueBack    pgtype.Date `json:"due_back"`
	Status     LoanStatus  `json:"status"`
	BorrowerID *string     `json:"borrower_id"`
}

// Validate checks the copy's own invariants.
func (bi BookInstance) Validate() error {
	if !bi.Status.Valid() {
		return fmt.Errorf("invalid status %q", bi.Status)
	}
	if bi.BorrowerID != nil && bi.Status != StatusOnLoan {
		return ErrBorrowerNotOnLoan
	}
	return nil
}

// IsOverdue reports whether the copy was due back before today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack.Valid && bi.DueBack.Time.Before(Today(today))
}

// Loan is a copy as listed for its borrower.
type Loan struct {
	BookInstance
	Overdue bool `json:"overdue"`
}

func Loans(instances []BookInstance, today time.Time) []Loan {
	return lo.Map(instances, func(bi BookInstance, _ int) Loan {
		return Loan{BookInstance: bi, Overdue: bi.IsOverdue(today)}
	})
}

type BookDetail struct {
	Book
	Instances []BookInstance `json:"instances"`
}

type AuthorDetail struct {
	Author
	Books []Book `json:"books"`
}

// Summary holds the landing page counters.
type Summary struct {
	Books              int `json:"num_books"`
	Instances          int `json:"num_instances"`
	InstancesAvailable int `json:"num_instances_available"`
	Authors            int `json:"num_authors"`
	Genres             int `json:"num_genres"`
	Languages          int `json:"num_languages"`
}

// InstanceFilter narrows instance listings. Zero fields are ignored.
type InstanceFilter struct {
	BookID     string
	BorrowerID string
	Status     LoanStatus
}

// ParseID normalises a record id. Anything that is not a UUID cannot exist
// and is reported as ErrNotFound.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return u.String(), nil
}

// Today returns the calendar date of t, in t's own zone, as UTC midnight.
// All stored dates use the same representation so they compare directly.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate wraps a calendar date for storage.
func NewDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: Today(t), Valid: true}
}
