package repositories

import (
	"context"

	"librarian/internal/models"
)

// BookFilter selects books for a paginated search. Keyword is skipped when empty.
type BookFilter struct {
	Keyword       string
	PurchasedFrom models.Date
	PurchasedTo   models.Date
	Offset        int
	Limit         int
}

// BookRepository defines the interface for book data access.
// Every listing is ordered by purchase date, newest first.
type BookRepository interface {
	ListAll(ctx context.Context) ([]models.Book, error)
	// Search returns one page of matching books and the number of matches across all pages.
	Search(ctx context.Context, filter BookFilter) ([]models.Book, int64, error)
	GetByID(ctx context.Context, id string) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	// Update writes the mutable columns of book. RegisteredBy and CreatedAt are left untouched.
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id string) error
}
