package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"librarian/internal/models"
	"librarian/internal/repositories"
	"librarian/internal/validation"

	"github.com/rs/zerolog"
)

// Search defaults and limits.
const (
	DefaultPage    = 1
	MaxPage        = 1000
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Purchase date range used when the query leaves a bound out.
var (
	DefaultPurchasedFrom = models.NewDate(2000, time.January, 1)
	DefaultPurchasedTo   = models.NewDate(2099, time.December, 31)
)

var bookRules = validation.Rules{
	{Field: "title", Tag: "required,max=255"},
	{Field: "author", Tag: "required,max=255"},
	{Field: "isbn", Tag: "max=32,isbn_chars"},
	{Field: "location", Tag: "max=255"},
	{Field: "purchasedAt", Tag: "ymd"},
}

var idRules = validation.Rules{
	{Field: "id", Tag: "required,uuid"},
}

var searchFormatRules = validation.Rules{
	{Field: "purchased_from", Tag: "ymd"},
	{Field: "purchased_to", Tag: "ymd"},
	{Field: "page", Tag: "integer"},
	{Field: "per_page", Tag: "integer"},
}

var searchRangeRules = validation.Rules{
	{Field: "page", Tag: "min=1,max=1000"},
	{Field: "per_page", Tag: "min=1,max=100"},
}

// EventPublisher delivers book mutation events.
type EventPublisher interface {
	PublishBookEvent(ctx context.Context, event models.BookEvent) error
}

// BookInput is the client payload for create and update. Nil and blank optional
// fields are treated as absent.
type BookInput struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        *string `json:"isbn"`
	Location    *string `json:"location"`
	Memo        *string `json:"memo"`
	PurchasedAt *string `json:"purchasedAt"`
}

// SearchQuery holds the raw query string values; empty means not supplied.
type SearchQuery struct {
	Keyword       string
	PurchasedFrom string
	PurchasedTo   string
	Page          string
	PerPage       string
}

// SearchResult is one page of matches plus the effective paging.
type SearchResult struct {
	Books   []models.Book `json:"books"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// BookService handles business logic related to books.
type BookService struct {
	repo      repositories.BookRepository
	publisher EventPublisher
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time
}

// NewBookService creates a new BookService. publisher may be nil.
func NewBookService(repo repositories.BookRepository, publisher EventPublisher, log zerolog.Logger) *BookService {
	return &BookService{
		repo:      repo,
		publisher: publisher,
		validator: validation.New(),
		log:       log.With().Str("component", "book_service").Logger(),
		now:       time.Now,
	}
}

// ListAll retrieves every book, newest purchase first.
func (s *BookService) ListAll(ctx context.Context) ([]models.Book, error) {
	return s.repo.ListAll(ctx)
}

// Search validates q, applies defaults and returns the requested page.
func (s *BookService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	verr := &ValidationError{}
	s.validator.Check(verr, searchFormatRules, presentValues(map[string]string{
		"purchased_from": q.PurchasedFrom,
		"purchased_to":   q.PurchasedTo,
		"page":           q.Page,
		"per_page":       q.PerPage,
	}))

	page := intOr(q.Page, DefaultPage)
	perPage := intOr(q.PerPage, DefaultPerPage)
	s.validator.Check(verr, searchRangeRules, map[string]any{"page": page, "per_page": perPage})

	from := dateOr(q.PurchasedFrom, DefaultPurchasedFrom)
	to := dateOr(q.PurchasedTo, DefaultPurchasedTo)
	if !verr.Has("purchased_from") && !verr.Has("purchased_to") && from.After(to) {
		verr.Add("purchased_from", "must be on or before purchased_to")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	books, total, err := s.repo.Search(ctx, repositories.BookFilter{
		Keyword:       q.Keyword,
		PurchasedFrom: from,
		PurchasedTo:   to,
		Offset:        (page - 1) * perPage,
		Limit:         perPage,
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Books: books, Total: total, Page: page, PerPage: perPage}, nil
}

// GetOne retrieves a single book by its ID.
func (s *BookService) GetOne(ctx context.Context, id string) (*models.Book, error) {
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// Create stores a new book owned by caller. Any owner in the payload is ignored.
func (s *BookService) Create(ctx context.Context, caller models.Identity, in BookInput) (*models.Book, error) {
	verr := &ValidationError{}
	s.checkInput(verr, in)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	book := &models.Book{RegisteredBy: caller.Email}
	applyInput(book, in)
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventBookCreated, book.ID, caller.Email)
	return book, nil
}

// Update replaces every mutable field of the book with the payload.
// RegisteredBy is kept from the stored record.
func (s *BookService) Update(ctx context.Context, caller models.Identity, id string, in BookInput) (*models.Book, error) {
	verr := &ValidationError{}
	s.validator.Check(verr, idRules, map[string]any{"id": id})
	s.checkInput(verr, in)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	book, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyInput(book, in)
	book.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, book); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	s.publish(ctx, models.EventBookUpdated, book.ID, caller.Email)
	return book, nil
}

// Delete permanently removes a book. Role checks happen before this is called.
func (s *BookService) Delete(ctx context.Context, caller models.Identity, id string) error {
	if err := s.checkID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	s.publish(ctx, models.EventBookDeleted, id, caller.Email)
	return nil
}

func (s *BookService) get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *BookService) checkID(id string) error {
	verr := &ValidationError{}
	s.validator.Check(verr, idRules, map[string]any{"id": id})
	return verr.Err()
}

func (s *BookService) checkInput(verr *ValidationError, in BookInput) {
	values := map[string]any{"title": in.Title, "author": in.Author}
	for field, v := range map[string]*string{"isbn": in.ISBN, "location": in.Location, "purchasedAt": in.PurchasedAt} {
		if present(v) {
			values[field] = *v
		}
	}
	s.validator.Check(verr, bookRules, values)
}

func (s *BookService) publish(ctx context.Context, eventType, bookID, actor string) {
	if s.publisher == nil {
		return
	}
	event := models.BookEvent{Type: eventType, BookID: bookID, Actor: actor, OccurredAt: s.now().UTC()}
	if err := s.publisher.PublishBookEvent(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("book_id", bookID).Msg("failed to publish book event")
	}
}

// applyInput copies a validated payload onto book.
func applyInput(book *models.Book, in BookInput) {
	book.Title = in.Title
	book.Author = in.Author
	book.ISBN = optional(in.ISBN)
	book.Location = optional(in.Location)
	book.Memo = optional(in.Memo)
	book.PurchasedAt = models.DefaultPurchasedAt
	if present(in.PurchasedAt) {
		book.PurchasedAt = models.MustParseDate(*in.PurchasedAt)
	}
}

func present(v *string) bool {
	return v != nil && *v != ""
}

func optional(v *string) *string {
	if !present(v) {
		return nil
	}
	s := *v
	return &s
}

func presentValues(raw map[string]string) map[string]any {
	values := make(map[string]any, len(raw))
	for k, v := range raw {
		if v != "" {
			values[k] = v
		}
	}
	return values
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func dateOr(raw string, fallback models.Date) models.Date {
	if raw == "" {
		return fallback
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return fallback
	}
	return d
}
