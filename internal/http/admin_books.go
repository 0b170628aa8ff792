package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/metadata"
	"github.com/mrlokans/librarian/internal/uploads"
)

// AdminBooksController handles inventory management: creating, editing and
// deleting books, including cover uploads.
type AdminBooksController struct {
	catalog        *catalog.Repository
	metadata       *metadata.Repository
	sessionManager *auth.SessionManager
	covers         *uploads.Store
}

func NewAdminBooksController(catalogRepo *catalog.Repository, metadataRepo *metadata.Repository, sessionManager *auth.SessionManager, covers *uploads.Store) *AdminBooksController {
	return &AdminBooksController{
		catalog:        catalogRepo,
		metadata:       metadataRepo,
		sessionManager: sessionManager,
		covers:         covers,
	}
}

// NewBookPage renders the add-book form with the metadata dropdowns.
func (ctrl *AdminBooksController) NewBookPage(c *gin.Context) {
	data, err := ctrl.metadataLists()
	if err != nil {
		respondInternalError(c, err, "load metadata lists")
		return
	}
	data["Username"] = auth.GetUsername(c)
	data["IsAdmin"] = true
	renderPage(c, "add_book_page.html", data)
}

// EditBookPage renders the edit form for one book.
func (ctrl *AdminBooksController) EditBookPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ctrl.catalog.GetBookByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	data, err := ctrl.metadataLists()
	if err != nil {
		respondInternalError(c, err, "load metadata lists")
		return
	}
	data["Book"] = book
	data["Username"] = auth.GetUsername(c)
	data["IsAdmin"] = true
	renderPage(c, "edit.html", data)
}

func (ctrl *AdminBooksController) metadataLists() (gin.H, error) {
	authors, err := ctrl.metadata.ListAuthors()
	if err != nil {
		return nil, err
	}
	categories, err := ctrl.metadata.ListCategories()
	if err != nil {
		return nil, err
	}
	languages, err := ctrl.metadata.ListLanguages()
	if err != nil {
		return nil, err
	}
	return gin.H{
		"Authors":    authors,
		"Categories": categories,
		"Languages":  languages,
	}, nil
}

// bookFormInput reads the shared book form fields. The cover upload is
// optional; when present it is stored and its generated filename returned
// in ImageFile.
func (ctrl *AdminBooksController) bookFormInput(c *gin.Context) (catalog.BookInput, error) {
	var in catalog.BookInput

	in.Title = c.PostForm("title")
	in.Summary = c.PostForm("summary")

	authorID, ok := parseOptionalUint(c.PostForm("author_id"))
	if !ok || authorID == nil {
		return in, fmt.Errorf("a valid author_id is required")
	}
	in.AuthorID = *authorID

	categoryID, ok := parseOptionalUint(c.PostForm("category_id"))
	if !ok || categoryID == nil {
		return in, fmt.Errorf("a valid category_id is required")
	}
	in.CategoryID = *categoryID

	languageID, ok := parseOptionalUint(c.PostForm("language_id"))
	if !ok || languageID == nil {
		return in, fmt.Errorf("a valid language_id is required")
	}
	in.LanguageID = *languageID

	year, ok := parseOptionalInt(c.PostForm("year"))
	if !ok {
		return in, fmt.Errorf("year must be a number")
	}
	in.Year = year

	price, ok := parseOptionalInt(c.PostForm("price"))
	if !ok {
		return in, fmt.Errorf("price must be a number")
	}
	in.Price = price

	if file, err := c.FormFile("image_file"); err == nil && file.Filename != "" {
		filename, err := ctrl.covers.Save(file)
		if err != nil {
			return in, err
		}
		in.ImageFile = filename
	}

	return in, nil
}

// CreateBook adds a book; total and available quantities both start at the
// submitted quantity (negative coerced to 1, zero accepted).
func (ctrl *AdminBooksController) CreateBook(c *gin.Context) {
	in, err := ctrl.bookFormInput(c)
	if err != nil {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Error: "+err.Error(), "/admin/books/new")
		return
	}

	quantity := 1
	if raw := c.PostForm("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			quantity = parsed
		}
	}

	if _, err := ctrl.catalog.CreateBook(in, quantity); err != nil {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Error: "+err.Error(), "/admin/books/new")
		return
	}

	flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
		"Book added successfully!", "/")
}

// UpdateBook edits a book's fields and reconciles its quantity against the
// outstanding loans. Field edits persist even when the quantity reduction is
// rejected.
func (ctrl *AdminBooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	editURL := fmt.Sprintf("/admin/books/%d/edit", id)

	book, err := ctrl.catalog.GetBookByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	in, err := ctrl.bookFormInput(c)
	if err != nil {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Error: "+err.Error(), editURL)
		return
	}

	newTotal := book.TotalQuantity
	if raw := c.PostForm("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			newTotal = parsed
		}
	}

	err = ctrl.catalog.UpdateBook(id, in, newTotal)
	var qtyErr *catalog.QuantityBelowBorrowedError
	switch {
	case err == nil:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
			"Book updated successfully!", editURL)
	case errors.As(err, &qtyErr):
		// Field edits went through; only the quantity change was refused.
		flashAndRedirect(c, ctrl.sessionManager, http.StatusConflict, auth.FlashDanger,
			fmt.Sprintf("Cannot reduce the total quantity to %d: %d copies are currently borrowed.",
				qtyErr.Requested, qtyErr.Borrowed), editURL)
	case errors.Is(err, catalog.ErrBookNotFound):
		respondNotFound(c, "book")
	default:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusInternalServerError, auth.FlashDanger,
			"Error: "+err.Error(), editURL)
	}
}

// DeleteBook removes a book unless copies are still out with borrowers.
func (ctrl *AdminBooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ctrl.catalog.GetBookByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	err = ctrl.catalog.DeleteBook(id)
	switch {
	case err == nil:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
			"Book deleted.", "/")
	case errors.Is(err, catalog.ErrBookBorrowed):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusConflict, auth.FlashDanger,
			fmt.Sprintf("Cannot delete %q while copies are still borrowed.", book.Title), "/")
	case errors.Is(err, catalog.ErrBookNotFound):
		respondNotFound(c, "book")
	default:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusInternalServerError, auth.FlashDanger,
			"Error: "+err.Error(), "/")
	}
}
