package manage

import (
	"context"
	"strings"

	"locallibrary/internal/catalog"
	"locallibrary/internal/httpx"

	"github.com/jackc/pgx/v5/pgtype"
)

// ValidationErrors is returned when a form fails validation. The store is
// not touched.
type ValidationErrors []httpx.ErrorDetail

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, d := range v {
		msgs[i] = d.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Service applies the edit forms for authors, books and copies.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) AuthorForm(ctx context.Context, id string) (AuthorInput, error) {
	a, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return AuthorInput{}, err
	}
	return authorForm(a), nil
}

func (s *Service) CreateAuthor(ctx context.Context, in AuthorInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	a := catalog.Author{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DateOfBirth: parseDate(in.DateOfBirth),
		DateOfDeath: parseDate(in.DateOfDeath),
	}
	if err := s.repo.CreateAuthor(ctx, &a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// UpdateAuthor merges the patch over the stored author, validates the result
// and writes only the columns that changed.
func (s *Service) UpdateAuthor(ctx context.Context, id string, p AuthorPatch) error {
	current, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return err
	}
	prev := authorForm(current)
	next := p.apply(prev)
	if err := next.Validate(); err != nil {
		return err
	}
	changes := diff(prev.columns(), next.columns())
	if len(changes) == 0 {
		return nil
	}
	return s.repo.UpdateAuthor(ctx, current.ID, changes)
}

// DeleteAuthor fails with catalog.ErrInUse while any book references the author.
func (s *Service) DeleteAuthor(ctx context.Context, id string) error {
	return s.repo.DeleteAuthor(ctx, id)
}

func (s *Service) BookForm(ctx context.Context, id string) (BookInput, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return BookInput{}, err
	}
	return bookForm(b), nil
}

func (s *Service) CreateBook(ctx context.Context, in BookInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	cols := in.columns()
	b := catalog.Book{
		Title:      strings.TrimSpace(in.Title),
		AuthorID:   cols["author_id"].(*string),
		Summary:    in.Summary,
		ISBN:       cols["isbn"].(string),
		LanguageID: cols["language_id"].(*string),
	}
	if err := s.repo.CreateBook(ctx, &b, in.GenreIDs); err != nil {
		return "", err
	}
	return b.ID, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, p BookPatch) error {
	current, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return err
	}
	prev := bookForm(current)
	next := p.apply(prev)
	if err := next.Validate(); err != nil {
		return err
	}

	changes := diff(prev.columns(), next.columns())
	var genreIDs []string
	if p.GenreIDs != nil {
		genreIDs = next.GenreIDs
		if genreIDs == nil {
			genreIDs = []string{}
		}
	}
	if len(changes) == 0 && genreIDs == nil {
		return nil
	}
	return s.repo.UpdateBook(ctx, current.ID, changes, genreIDs)
}

// DeleteBook fails with catalog.ErrInUse while the book has copies.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	return s.repo.DeleteBook(ctx, id)
}

func (s *Service) InstanceForm(ctx context.Context, id string) (InstanceInput, error) {
	bi, err := s.repo.GetInstance(ctx, id)
	if err != nil {
		return InstanceInput{}, err
	}
	return instanceForm(bi), nil
}

// CreateInstance adds a copy. An empty status defaults to maintenance.
func (s *Service) CreateInstance(ctx context.Context, in InstanceInput) (string, error) {
	if in.Status == "" {
		in.Status = string(catalog.StatusMaintenance)
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	cols := in.columns()
	bi := catalog.BookInstance{
		BookID:     in.BookID,
		Imprint:    strings.TrimSpace(in.Imprint),
		DueBack:    cols["due_back"].(pgtype.Date),
		Status:     catalog.LoanStatus(in.Status),
		BorrowerID: cols["borrower_id"].(*string),
	}
	if err := bi.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.CreateInstance(ctx, &bi); err != nil {
		return "", err
	}
	return bi.ID, nil
}

func (s *Service) UpdateInstance(ctx context.Context, id string, p InstancePatch) error {
	current, err := s.repo.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	prev := instanceForm(current)
	next := p.apply(prev)
	if err := next.Validate(); err != nil {
		return err
	}
	changes := diff(prev.columns(), next.columns())
	if len(changes) == 0 {
		return nil
	}
	return s.repo.UpdateInstance(ctx, current.ID, changes)
}

// DeleteInstance removes exactly one copy.
func (s *Service) DeleteInstance(ctx context.Context, id string) error {
	return s.repo.DeleteInstance(ctx, id)
}
