package catalog

import (
	"context"

	"locallibrary/internal/platform/weather"
)

// Repository is the read side of the catalog store.
type Repository interface {
	Counts(ctx context.Context) (Summary, error)
	ListBooks(ctx context.Context, limit, offset int) ([]Book, int, error)
	ListAuthors(ctx context.Context, limit, offset int) ([]Author, int, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	ListLanguages(ctx context.Context) ([]Language, error)
	ListInstances(ctx context.Context, f InstanceFilter, limit, offset int) ([]BookInstance, int, error)
	ListBooksByAuthor(ctx context.Context, authorID string) ([]Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	GetAuthor(ctx context.Context, id string) (Author, error)
	GetInstance(ctx context.Context, id string) (BookInstance, error)
}

// VisitCounter records one landing page view for a session and returns the
// number of views before it.
type VisitCounter interface {
	Count(ctx context.Context, sessionID string) (int, error)
}

// WeatherSource reports current conditions for the configured location.
type WeatherSource interface {
	Current(ctx context.Context) (weather.Report, error)
}
