package manage

import (
	"strings"

	"locallibrary/internal/catalog"
	"locallibrary/internal/httpx"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

// AuthorInput lists the author fields a form may write.
type AuthorInput struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,date"`
	DateOfDeath string `json:"date_of_death" validate:"omitempty,date"`
}

// AuthorPatch carries only the fields sent with an update.
type AuthorPatch struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
	DateOfDeath *string `json:"date_of_death"`
}

type BookInput struct {
	Title      string   `json:"title" validate:"required,max=200"`
	AuthorID   string   `json:"author_id" validate:"omitempty,uuid"`
	Summary    string   `json:"summary" validate:"required,max=1000"`
	ISBN       string   `json:"isbn" validate:"required,isbn"`
	LanguageID string   `json:"language_id" validate:"omitempty,uuid"`
	GenreIDs   []string `json:"genre_ids" validate:"dive,uuid"`
}

// BookPatch replaces the genre links only when GenreIDs is sent.
type BookPatch struct {
	Title      *string   `json:"title"`
	AuthorID   *string   `json:"author_id"`
	Summary    *string   `json:"summary"`
	ISBN       *string   `json:"isbn"`
	LanguageID *string   `json:"language_id"`
	GenreIDs   *[]string `json:"genre_ids"`
}

type InstanceInput struct {
	BookID     string `json:"book_id" validate:"required,uuid"`
	Imprint    string `json:"imprint" validate:"required,max=200"`
	DueBack    string `json:"due_back" validate:"omitempty,date"`
	Status     string `json:"status" validate:"required,oneof=m o a r"`
	BorrowerID string `json:"borrower_id" validate:"omitempty,uuid"`
}

type InstancePatch struct {
	BookID     *string `json:"book_id"`
	Imprint    *string `json:"imprint"`
	DueBack    *string `json:"due_back"`
	Status     *string `json:"status"`
	BorrowerID *string `json:"borrower_id"`
}

// Validate checks field rules and the rules that span fields.
func (in AuthorInput) Validate() error {
	errs := ValidationErrors(httpx.ValidateStruct(in))
	if len(errs) == 0 && in.DateOfBirth != "" && in.DateOfDeath != "" {
		birth, _ := httpx.ParseDate(in.DateOfBirth)
		death, _ := httpx.ParseDate(in.DateOfDeath)
		if death.Before(birth) {
			errs = append(errs, httpx.ErrorDetail{
				Field:   "date_of_death",
				Message: "date_of_death must not be before date_of_birth",
			})
		}
	}
	return errs.orNil()
}

func (in BookInput) Validate() error {
	return ValidationErrors(httpx.ValidateStruct(in)).orNil()
}

func (in InstanceInput) Validate() error {
	errs := ValidationErrors(httpx.ValidateStruct(in))
	if in.BorrowerID != "" && in.Status != string(catalog.StatusOnLoan) {
		errs = append(errs, httpx.ErrorDetail{
			Field:   "borrower_id",
			Message: "a copy with a borrower must be on loan",
		})
	}
	return errs.orNil()
}

func (p AuthorPatch) apply(in AuthorInput) AuthorInput {
	set(&in.FirstName, p.FirstName)
	set(&in.LastName, p.LastName)
	set(&in.DateOfBirth, p.DateOfBirth)
	set(&in.DateOfDeath, p.DateOfDeath)
	return in
}

func (p BookPatch) apply(in BookInput) BookInput {
	set(&in.Title, p.Title)
	set(&in.AuthorID, p.AuthorID)
	set(&in.Summary, p.Summary)
	set(&in.ISBN, p.ISBN)
	set(&in.LanguageID, p.LanguageID)
	if p.GenreIDs != nil {
		in.GenreIDs = *p.GenreIDs
	}
	return in
}

func (p InstancePatch) apply(in InstanceInput) InstanceInput {
	set(&in.BookID, p.BookID)
	set(&in.Imprint, p.Imprint)
	set(&in.DueBack, p.DueBack)
	set(&in.Status, p.Status)
	set(&in.BorrowerID, p.BorrowerID)
	return in
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func authorForm(a catalog.Author) AuthorInput {
	return AuthorInput{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: formatDate(a.DateOfBirth),
		DateOfDeath: formatDate(a.DateOfDeath),
	}
}

func bookForm(b catalog.Book) BookInput {
	return BookInput{
		Title:      b.Title,
		AuthorID:   lo.FromPtr(b.AuthorID),
		Summary:    b.Summary,
		ISBN:       b.ISBN,
		LanguageID: lo.FromPtr(b.LanguageID),
		GenreIDs:   lo.Map(b.Genres, func(g catalog.Genre, _ int) string { return g.ID }),
	}
}

func instanceForm(bi catalog.BookInstance) InstanceInput {
	return InstanceInput{
		BookID:     bi.BookID,
		Imprint:    bi.Imprint,
		DueBack:    formatDate(bi.DueBack),
		Status:     string(bi.Status),
		BorrowerID: lo.FromPtr(bi.BorrowerID),
	}
}

func (in AuthorInput) columns() map[string]any {
	return map[string]any{
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"date_of_birth": parseDate(in.DateOfBirth),
		"date_of_death": parseDate(in.DateOfDeath),
	}
}

func (in BookInput) columns() map[string]any {
	return map[string]any{
		"title":       in.Title,
		"author_id":   lo.EmptyableToPtr(in.AuthorID),
		"summary":     in.Summary,
		"isbn":        normalizeISBN(in.ISBN),
		"language_id": lo.EmptyableToPtr(in.LanguageID),
	}
}

func (in InstanceInput) columns() map[string]any {
	return map[string]any{
		"book_id":     in.BookID,
		"imprint":     in.Imprint,
		"due_back":    parseDate(in.DueBack),
		"status":      in.Status,
		"borrower_id": lo.EmptyableToPtr(in.BorrowerID),
	}
}

// diff returns the columns of next whose values differ from prev.
func diff(prev, next map[string]any) map[string]any {
	return lo.PickBy(next, func(col string, v any) bool {
		return !sameValue(prev[col], v)
	})
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case *string:
		bv, _ := b.(*string)
		return lo.FromPtr(av) == lo.FromPtr(bv) && (av == nil) == (bv == nil)
	case pgtype.Date:
		bv, _ := b.(pgtype.Date)
		return av.Valid == bv.Valid && (!av.Valid || av.Time.Equal(bv.Time))
	}
	return a == b
}

func parseDate(s string) pgtype.Date {
	if s == "" {
		return pgtype.Date{}
	}
	t, err := httpx.ParseDate(s)
	if err != nil {
		return pgtype.Date{}
	}
	return catalog.NewDate(t)
}

func formatDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(httpx.DateLayout)
}

func normalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(isbn)
}
