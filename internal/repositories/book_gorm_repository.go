package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"librarian/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const bookOrder = "books.purchased_at DESC, books.id DESC"

// mutableBookColumns are the only columns Update writes.
var mutableBookColumns = []string{"title", "author", "isbn", "location", "memo", "purchased_at", "updated_at"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{
		db: db,
	}
}

// ListAll retrieves every book.
func (r *GORMBookRepository) ListAll(ctx context.Context) ([]models.Book, error) {
	books := make([]models.Book, 0)
	if err := r.db.WithContext(ctx).Order(bookOrder).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to get all books: %w", err)
	}
	return books, nil
}

// Search runs the page query and the count query concurrently.
func (r *GORMBookRepository) Search(ctx context.Context, filter BookFilter) ([]models.Book, int64, error) {
	books := make([]models.Book, 0)
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.db.WithContext(gctx).
			Scopes(filter.scope).
			Select("books.*").
			Order(bookOrder).
			Offset(filter.Offset).
			Limit(filter.Limit).
			Find(&books).Error
		if err != nil {
			return fmt.Errorf("failed to search books: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := r.db.WithContext(gctx).
			Model(&models.Book{}).
			Scopes(filter.scope).
			Count(&total).Error
		if err != nil {
			return fmt.Errorf("failed to count books: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// scope applies the keyword and purchase-date conditions. The keyword is matched literally
// against title, author, memo, the registering email and the registering user's name.
func (f BookFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Table("books").
		Joins("LEFT JOIN users ON users.email = books.registered_by").
		Where("books.purchased_at >= ? AND books.purchased_at <= ?", f.PurchasedFrom, f.PurchasedTo)
	if f.Keyword == "" {
		return db
	}
	pattern := "%" + likeEscaper.Replace(f.Keyword) + "%"
	return db.Where(
		`books.title LIKE ? ESCAPE '\' OR books.author LIKE ? ESCAPE '\' OR books.memo LIKE ? ESCAPE '\' `+
			`OR books.registered_by LIKE ? ESCAPE '\' OR users.name LIKE ? ESCAPE '\'`,
		pattern, pattern, pattern, pattern, pattern,
	)
}

// GetByID retrieves a single book by its ID from the database.
func (r *GORMBookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get book by ID %s: %w", id, err)
	}
	return &book, nil
}

// Create creates a new book in the database.
func (r *GORMBookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(book).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Update updates an existing book in the database. Nil optional fields are written as NULL.
func (r *GORMBookRepository) Update(ctx context.Context, book *models.Book) error {
	res := r.db.WithContext(ctx).
		Model(book).
		Select(mutableBookColumns).
		Updates(book)
	if res.Error != nil {
		return fmt.Errorf("failed to update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book with ID %s: %w", book.ID, ErrNotFound)
	}
	return nil
}

// Delete permanently removes a book by its ID.
func (r *GORMBookRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
