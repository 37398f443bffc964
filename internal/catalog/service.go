package catalog

import (
	"context"
	"fmt"
)

// Service answers the read-only catalog views.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	sum, err := s.repo.Counts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("catalog summary: %w", err)
	}
	return sum, nil
}

// ListBooks returns one page of books ordered by title.
func (s *Service) ListBooks(ctx context.Context, page int) ([]Book, int, error) {
	return s.repo.ListBooks(ctx, PageSize, offset(page))
}

// ListAuthors returns one page of authors ordered by last then first name.
func (s *Service) ListAuthors(ctx context.Context, page int) ([]Author, int, error) {
	return s.repo.ListAuthors(ctx, PageSize, offset(page))
}

func (s *Service) ListGenres(ctx context.Context) ([]Genre, error) {
	return s.repo.ListGenres(ctx)
}

func (s *Service) ListLanguages(ctx context.Context) ([]Language, error) {
	return s.repo.ListLanguages(ctx)
}

func (s *Service) ListInstances(ctx context.Context, page int) ([]BookInstance, int, error) {
	return s.repo.ListInstances(ctx, InstanceFilter{}, PageSize, offset(page))
}

// ListOnLoanTo returns the copies currently on loan to userID, soonest due first.
func (s *Service) ListOnLoanTo(ctx context.Context, userID string, page int) ([]BookInstance, int, error) {
	if userID == "" {
		return nil, 0, nil
	}
	f := InstanceFilter{BorrowerID: userID, Status: StatusOnLoan}
	return s.repo.ListInstances(ctx, f, PageSize, offset(page))
}

func (s *Service) GetBook(ctx context.Context, id string) (BookDetail, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return BookDetail{}, err
	}
	instances, _, err := s.repo.ListInstances(ctx, InstanceFilter{BookID: b.ID}, 0, 0)
	if err != nil {
		return BookDetail{}, fmt.Errorf("book instances: %w", err)
	}
	if instances == nil {
		instances = []BookInstance{}
	}
	return BookDetail{Book: b, Instances: instances}, nil
}

func (s *Service) GetAuthor(ctx context.Context, id string) (AuthorDetail, error) {
	a, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return AuthorDetail{}, err
	}
	books, err := s.repo.ListBooksByAuthor(ctx, a.ID)
	if err != nil {
		return AuthorDetail{}, fmt.Errorf("author books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return AuthorDetail{Author: a, Books: books}, nil
}

func (s *Service) GetInstance(ctx context.Context, id string) (BookInstance, error) {
	return s.repo.GetInstance(ctx, id)
}

func offset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}
