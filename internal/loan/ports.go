package loan

import (
	"context"
	"time"

	"locallibrary/internal/catalog"
)

// Repository is the slice of the catalog store the renewal workflow needs.
type Repository interface {
	GetInstance(ctx context.Context, id string) (catalog.BookInstance, error)
	UpdateDueBack(ctx context.Context, id string, dueBack time.Time) error
}
