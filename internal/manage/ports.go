package manage

import (
	"context"

	"locallibrary/internal/catalog"
)

// Repository is the write side of the catalog store.
type Repository interface {
	GetAuthor(ctx context.Context, id string) (catalog.Author, error)
	CreateAuthor(ctx context.Context, a *catalog.Author) error
	UpdateAuthor(ctx context.Context, id string, changes map[string]any) error
	DeleteAuthor(ctx context.Context, id string) error

	GetBook(ctx context.Context, id string) (catalog.Book, error)
	CreateBook(ctx context.Context, b *catalog.Book, genreIDs []string) error
	UpdateBook(ctx context.Context, id string, changes map[string]any, genreIDs []string) error
	DeleteBook(ctx context.Context, id string) error

	GetInstance(ctx context.Context, id string) (catalog.BookInstance, error)
	CreateInstance(ctx context.Context, bi *catalog.BookInstance) error
	UpdateInstance(ctx context.Context, id string, changes map[string]any) error
	DeleteInstance(ctx context.Context, id string) error
}
