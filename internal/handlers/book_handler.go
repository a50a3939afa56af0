package handlers

import (
	"librarian/internal/middleware"
	"librarian/internal/models"
	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles HTTP requests for books.
type BookHandler struct {
	bookService *services.BookService
	authService *services.AuthService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(bookService *services.BookService, authService *services.AuthService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		authService: authService,
	}
}

// RegisterRoutes registers the book routes. Each route verifies the bearer token;
// DELETE additionally requires the admin role.
func (h *BookHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)

	bookRoutes := router.Group("/books")
	bookRoutes.Get("/all", auth, h.ListAll)
	bookRoutes.Get("/", auth, h.Search)
	bookRoutes.Post("/", auth, h.Create)
	bookRoutes.Get("/:id", auth, h.GetOne)
	bookRoutes.Put("/:id", auth, h.Update)
	bookRoutes.Delete("/:id", auth, middleware.RequireRole(h.authService, models.RoleAdmin), h.Delete)
}

// ListAll handles GET /books/all.
func (h *BookHandler) ListAll(c *fiber.Ctx) error {
	books, err := h.bookService.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"books": books})
}

// Search handles GET /books with keyword, date range and paging parameters.
func (h *BookHandler) Search(c *fiber.Ctx) error {
	result, err := h.bookService.Search(c.UserContext(), services.SearchQuery{
		Keyword:       c.Query("keyword"),
		PurchasedFrom: c.Query("purchased_from"),
		PurchasedTo:   c.Query("purchased_to"),
		Page:          c.Query("page"),
		PerPage:       c.Query("per_page"),
	})
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Create handles POST /books. The owner is always the caller.
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var in services.BookInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	book, err := h.bookService.Create(c.UserContext(), middleware.IdentityFrom(c), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"book": book})
}

// GetOne handles GET /books/:id.
func (h *BookHandler) GetOne(c *fiber.Ctx) error {
	book, err := h.bookService.GetOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"book": book})
}

// Update handles PUT /books/:id. registeredBy in the body is ignored.
func (h *BookHandler) Update(c *fiber.Ctx) error {
	var in services.BookInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	book, err := h.bookService.Update(c.UserContext(), middleware.IdentityFrom(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"book": book})
}

// Delete handles DELETE /books/:id.
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	if err := h.bookService.Delete(c.UserContext(), middleware.IdentityFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}
